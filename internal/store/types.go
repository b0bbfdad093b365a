// Package store implements the two storage tiers for conversation state:
// bounded, session-scoped in-memory caches and unbounded durable stores.
// Both tiers share the same read/write surface so the repositories in
// internal/repo can compose them freely.
package store

import (
	"context"
	"time"
)

// MessageType classifies a conversation message.
type MessageType string

const (
	TypeUser    MessageType = "user"
	TypeAgent   MessageType = "agent"
	TypeTool    MessageType = "tool"
	TypeError   MessageType = "error"
	TypeSummary MessageType = "summary"
)

// Message is one entry in the conversation transcript. Storing a message
// whose ID already exists replaces it in place, which supports progressive
// updates to a streamed message.
type Message struct {
	ID        string
	Type      MessageType
	Content   string
	Sender    string
	Timestamp time.Time
	Metadata  map[string]string
}

// VectorMatch is a single similarity search hit.
type VectorMatch struct {
	MessageID  string
	Similarity float32
}

// MessageStore is the surface shared by the cached and durable message tiers.
type MessageStore interface {
	// StoreMessage upserts a message by ID.
	StoreMessage(ctx context.Context, msg Message) error

	// StoreMessages upserts a batch of messages.
	StoreMessages(ctx context.Context, msgs []Message) error

	// History returns messages in chronological order. A limit <= 0 returns
	// the full history; otherwise the most recent limit messages. The
	// durable tier additionally refuses to reach past a summary message,
	// since a summary stands in for everything older.
	History(ctx context.Context, limit int) ([]Message, error)

	// ByType returns the most recent messages of the given type, in
	// chronological order. A limit <= 0 returns all of them.
	ByType(ctx context.Context, mt MessageType, limit int) ([]Message, error)

	// SearchRegex returns the most recent messages whose content matches
	// the Go regular expression, optionally filtered by type (empty type
	// matches any). A limit <= 0 returns all matches.
	SearchRegex(ctx context.Context, pattern string, limit int, mt MessageType) ([]Message, error)

	// ByID returns the message with the given ID, or (nil, nil) when it
	// does not exist.
	ByID(ctx context.Context, id string) (*Message, error)
}

// VectorStore is the surface shared by the cached and durable vector tiers.
// Vectors are keyed by the owning message ID; storing a new vector for the
// same ID replaces the old one. Embeddings are copied on the way in and out,
// so callers never share backing arrays with a tier.
type VectorStore interface {
	// StoreVector upserts the embedding for a message. Empty embeddings
	// are rejected with ErrEmptyVector.
	StoreVector(ctx context.Context, messageID string, embedding []float32) error

	// SearchSimilar returns up to limit matches ordered by descending
	// cosine similarity; matches with negative similarity are dropped.
	SearchSimilar(ctx context.Context, query []float32, limit int) ([]VectorMatch, error)
}

// cloneMessage copies a message including its metadata map so tiers never
// share mutable state with callers.
func cloneMessage(m Message) Message {
	if m.Metadata != nil {
		meta := make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			meta[k] = v
		}
		m.Metadata = meta
	}
	return m
}

func cloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = cloneMessage(m)
	}
	return out
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
