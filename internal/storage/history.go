package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Divas-Gupta30/ayurwell/internal/graph"
)

// HistoryStore persists conversation messages per thread.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistoryStore connects with lib/pq and creates the messages table.
func OpenHistoryStore(ctx context.Context, url string) (*HistoryStore, error) {
	if url == "" {
		url = DefaultDatabaseURL
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := &HistoryStore{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *HistoryStore) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversation_messages (
		id BIGSERIAL PRIMARY KEY,
		thread_id VARCHAR(64) NOT NULL,
		role VARCHAR(16) NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS conversation_messages_thread_idx
		ON conversation_messages (thread_id, id);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating conversation tables: %w", err)
	}
	return nil
}

// Load returns the most recent limit messages of a thread, oldest first.
// A non-positive limit loads the whole thread.
func (s *HistoryStore) Load(ctx context.Context, threadID string, limit int) ([]graph.Message, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM (
			SELECT id, role, content FROM conversation_messages
			WHERE thread_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent ORDER BY id ASC`, threadID, lim)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	var out []graph.Message
	for rows.Next() {
		var m graph.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Append stores messages in order in a single statement.
func (s *HistoryStore) Append(ctx context.Context, threadID string, msgs ...graph.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	roles := make([]string, len(msgs))
	contents := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = string(m.Role)
		contents[i] = m.Content
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (thread_id, role, content)
		SELECT $1, r, c FROM unnest($2::text[], $3::text[]) WITH ORDINALITY AS t(r, c, n)
		ORDER BY n`,
		threadID, pq.Array(roles), pq.Array(contents))
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}
