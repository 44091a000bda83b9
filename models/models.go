package models

import "time"

// Role identifies who produced a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source points at the article a passage was taken from.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ChatTurn is one message in a session's log. Immutable once appended.
// Sources is set only on assistant turns.
type ChatTurn struct {
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	Timestamp int64    `json:"timestamp"` // epoch millis
	Sources   []Source `json:"sources,omitempty"`
}

// NewUserTurn builds a user turn stamped with the current time.
func NewUserTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleUser, Content: content, Timestamp: time.Now().UnixMilli()}
}

// NewAssistantTurn builds an assistant turn carrying its cited sources.
func NewAssistantTurn(content string, sources []Source) ChatTurn {
	return ChatTurn{Role: RoleAssistant, Content: content, Timestamp: time.Now().UnixMilli(), Sources: sources}
}

// Article is an ingestion-time document. It is embedded once and stored as a
// vector-index point keyed by ID; re-ingesting the same ID overwrites the
// prior point.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

// RetrievedPassage is a similarity-search hit. Produced fresh per query,
// never persisted.
type RetrievedPassage struct {
	Score       float64 `json:"score"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	URL         string  `json:"url"`
	PublishedAt string  `json:"published_at"`
}
