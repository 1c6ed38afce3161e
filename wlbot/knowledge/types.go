package knowledge

import (
	"strings"
	"time"
)

// Type classifies a knowledge entry. Immutable after creation.
type Type string

const (
	TypeUnit      Type = "unit"
	TypeBuilding  Type = "building"
	TypeStrategy  Type = "strategy"
	TypeTiming    Type = "timing"
	TypePlayer    Type = "player"
	TypeMeta      Type = "meta"
	TypeMechanics Type = "mechanics"
	TypeGeneral   Type = "general"
)

func (t Type) valid() bool {
	switch t {
	case TypeUnit, TypeBuilding, TypeStrategy, TypeTiming,
		TypePlayer, TypeMeta, TypeMechanics, TypeGeneral:
		return true
	}
	return false
}

// Source is the provenance/trust tier of an entry.
type Source string

const (
	// SourceStatic marks curated seed data.
	SourceStatic Source = "static"
	// SourceDynamic marks facts extracted from chat messages.
	SourceDynamic Source = "dynamic"
	// SourceVerified marks facts confirmed by multiple sources.
	SourceVerified Source = "verified"
	// SourceOutdated marks facts flagged as potentially stale.
	SourceOutdated Source = "outdated"
)

func (s Source) valid() bool {
	switch s {
	case SourceStatic, SourceDynamic, SourceVerified, SourceOutdated:
		return true
	}
	return false
}

// Entry is the persisted unit of game knowledge.
type Entry struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Source     Source    `json:"source"`
	Content    Content   `json:"content"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	// References holds related entry or message ids, informational only.
	References  []string `json:"references,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ContextTags []string `json:"context_tags,omitempty"`
}

// Validate checks the entry invariants and that the payload matches the
// declared type.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if !e.Type.valid() {
		return &ValidationError{Field: "type", Reason: "unknown value " + string(e.Type)}
	}
	if !e.Source.valid() {
		return &ValidationError{Field: "source", Reason: "unknown value " + string(e.Source)}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &ValidationError{Field: "confidence", Reason: "must be in [0,1]"}
	}
	return e.Content.validate(e.Type)
}

// SearchText derives the natural-language blob indexed for full-text search.
func (e *Entry) SearchText() string {
	parts := []string{}
	parts = append(parts, e.Tags...)
	parts = append(parts, e.ContextTags...)
	parts = append(parts, e.Content.searchText()...)
	return strings.Join(parts, " ")
}

// Update carries a chat message candidate for dynamic knowledge extraction.
type Update struct {
	MessageText string    `json:"message_text"`
	MessageID   string    `json:"message_id"`
	ChatID      int64     `json:"chat_id"`
	Username    string    `json:"username"`
	Timestamp   time.Time `json:"timestamp"`
	TopicTags   []string  `json:"topic_tags,omitempty"`
}

// Statistics aggregates store-wide counters.
type Statistics struct {
	TotalEntries  int            `json:"total_entries"`
	ByType        map[string]int `json:"by_type"`
	BySource      map[string]int `json:"by_source"`
	AvgConfidence float64        `json:"avg_confidence"`
	// RecentUpdates counts entries touched within the last 24 hours.
	RecentUpdates int `json:"recent_updates"`
}
