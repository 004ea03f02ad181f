package domain

import (
	"context"
	"time"
)

// Brief generator kinds.
const (
	BriefKindRules = "rules"
	BriefKindLLM   = "llm"
)

// BriefingEvent records one generated set of briefs for downstream consumers.
type BriefingEvent struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Location      Place     `json:"location"`
	Condition     string    `json:"condition"`
	ShortBrief    string    `json:"short_brief,omitempty"`
	FullBrief     string    `json:"full_brief,omitempty"`
	TomorrowBrief string    `json:"tomorrow_brief"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// BriefingPublisher delivers briefing events.
type BriefingPublisher interface {
	Publish(ctx context.Context, event BriefingEvent) error
}
