package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"
)

func (s *SQLiteStore) StoreVector(ctx context.Context, messageID string, embedding []float32) error {
	if messageID == "" {
		return ErrEmptyID
	}
	if len(embedding) == 0 {
		return ErrEmptyVector
	}

	// Serialize vector
	vecBuf := new(bytes.Buffer)
	if err := binary.Write(vecBuf, binary.LittleEndian, embedding); err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	query := `INSERT INTO vectors (message_id, embedding, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			embedding = excluded.embedding,
			stored_at = excluded.stored_at`
	if _, err := db.ExecContext(ctx, query, messageID, vecBuf.Bytes(), time.Now()); err != nil {
		return fmt.Errorf("failed to store vector: %w", err)
	}
	return nil
}

// SearchSimilar loads all stored vectors, computes cosine similarity and
// returns the top matches. Naive linear scan; fine for per-session history.
func (s *SQLiteStore) SearchSimilar(ctx context.Context, query []float32, limit int) ([]VectorMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT message_id, embedding FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		var messageID string
		var vecBlob []byte
		if err := rows.Scan(&messageID, &vecBlob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}

		// Decode vector
		vector := make([]float32, len(vecBlob)/4)
		if err := binary.Read(bytes.NewReader(vecBlob), binary.LittleEndian, &vector); err != nil {
			continue
		}

		score := cosineSimilarity(query, vector)
		if score < 0 {
			continue
		}
		matches = append(matches, VectorMatch{MessageID: messageID, Similarity: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan vectors: %w", err)
	}

	sortMatches(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
