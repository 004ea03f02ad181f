package domain

import (
	"context"
	"errors"
	"fmt"
)

// PreferenceStore persists small UI preferences.
type PreferenceStore interface {
	Get(ctx context.Context, key, def string) (string, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
}

// Preference keys.
const (
	PrefFontSize  = "fontSize"
	PrefBriefMode = "briefMode"
)

var (
	ErrUnknownPreference = errors.New("unknown preference")
	ErrInvalidPreference = errors.New("invalid preference value")
)

type preferenceSpec struct {
	def     string
	allowed []string
}

var preferences = map[string]preferenceSpec{
	PrefFontSize:  {def: "medium", allowed: []string{"small", "medium", "large"}},
	PrefBriefMode: {def: "short", allowed: []string{"short", "full"}},
}

// FontScale maps a fontSize value to its text scale factor.
var FontScale = map[string]float64{
	"small":  0.85,
	"medium": 1.0,
	"large":  1.2,
}

// PreferenceDefault returns the default for a known key.
func PreferenceDefault(key string) (string, error) {
	spec, ok := preferences[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	return spec.def, nil
}

// ValidatePreference checks that key is known and value is allowed for it.
func ValidatePreference(key, value string) error {
	spec, ok := preferences[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	for _, v := range spec.allowed {
		if v == value {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q", ErrInvalidPreference, key, value)
}
