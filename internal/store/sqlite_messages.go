package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
)

const messageColumns = `id, type, content, sender, created_at, metadata`

func (s *SQLiteStore) StoreMessage(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}
	return upsertMessage(ctx, db, msg)
}

func (s *SQLiteStore) StoreMessages(ctx context.Context, msgs []Message) error {
	for _, m := range msgs {
		if m.ID == "" {
			return ErrEmptyID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		if err := upsertMessage(ctx, tx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertMessage(ctx context.Context, db execer, msg Message) error {
	metaJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO messages (id, type, content, sender, created_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			content = excluded.content,
			sender = excluded.sender,
			created_at = excluded.created_at,
			metadata = excluded.metadata`
	_, err = db.ExecContext(ctx, query, msg.ID, string(msg.Type), msg.Content, msg.Sender, msg.Timestamp, string(metaJSON))
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

// History returns the full history for limit <= 0. For a bounded request it
// walks backwards from the newest message and stops after including a
// summary, since the summary stands in for everything older.
func (s *SQLiteStore) History(ctx context.Context, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		rows, err := db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY created_at ASC, id ASC`)
		if err != nil {
			return nil, fmt.Errorf("failed to query history: %w", err)
		}
		defer rows.Close()
		return collectMessages(rows, 0, false)
	}

	rows, err := db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows, limit, true)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

func (s *SQLiteStore) ByType(ctx context.Context, mt MessageType, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		rows, err := db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE type = ? ORDER BY created_at ASC, id ASC`, string(mt))
		if err != nil {
			return nil, fmt.Errorf("failed to query messages by type: %w", err)
		}
		defer rows.Close()
		return collectMessages(rows, 0, false)
	}

	rows, err := db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE type = ? ORDER BY created_at DESC, id DESC LIMIT ?`, string(mt), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages by type: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows, limit, false)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

// SearchRegex matches message content against a Go regular expression. The
// pattern is applied in-process so both tiers share identical matching
// semantics.
func (s *SQLiteStore) SearchRegex(ctx context.Context, pattern string, limit int, mt MessageType) ([]Message, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + messageColumns + ` FROM messages ORDER BY created_at DESC, id DESC`
	args := []any{}
	if mt != "" {
		query = `SELECT ` + messageColumns + ` FROM messages WHERE type = ? ORDER BY created_at DESC, id DESC`
		args = append(args, string(mt))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var matched []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		if !re.MatchString(m.Content) {
			continue
		}
		matched = append(matched, m)
		if limit > 0 && len(matched) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}

	reverseMessages(matched)
	return matched, nil
}

func (s *SQLiteStore) ByID(ctx context.Context, id string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessageRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc rowScanner) (Message, error) {
	var m Message
	var mt string
	var sender sql.NullString
	var metaJSON sql.NullString

	if err := sc.Scan(&m.ID, &mt, &m.Content, &sender, &m.Timestamp, &metaJSON); err != nil {
		return Message{}, err
	}

	m.Type = MessageType(mt)
	if sender.Valid {
		m.Sender = sender.String
	}
	if metaJSON.Valid && metaJSON.String != "" && metaJSON.String != "null" {
		if err := json.Unmarshal([]byte(metaJSON.String), &m.Metadata); err != nil {
			return Message{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return m, nil
}

func scanMessageRow(row *sql.Row) (Message, error) {
	return scanMessage(row)
}

// collectMessages drains rows into a slice. When stopAtSummary is set the
// collection ends after the first summary message (rows arrive newest
// first, so the summary marks the compaction boundary).
func collectMessages(rows *sql.Rows, limit int, stopAtSummary bool) ([]Message, error) {
	var msgs []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
		if stopAtSummary && m.Type == TypeSummary {
			break
		}
		if limit > 0 && len(msgs) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return msgs, nil
}

func reverseMessages(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
