// Package archive provides optional PostgreSQL-backed storage of every sent
// message. Redis history keeps only a recent window per couple; the archive
// keeps everything and serves older pages when Redis has nothing.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/pookieplum/chat-app/internal/chat"
	"github.com/pookieplum/chat-app/internal/widget"
)

// DefaultPageSize caps List when no limit is given.
const DefaultPageSize = 100

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}
	return db, nil
}

// Store archives messages in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new archive store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Archive inserts a message. Archiving the same message twice is a no-op.
func (s *Store) Archive(ctx context.Context, coupleID string, m chat.Message) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	var (
		widgetType sql.NullString
		widgetJSON []byte
	)
	if m.Widget != nil {
		raw, err := widget.Encode(m.Widget)
		if err != nil {
			return fmt.Errorf("archive: encode widget: %w", err)
		}
		widgetType = sql.NullString{String: string(m.Widget.Type()), Valid: true}
		widgetJSON = raw
	}

	const query = `
		INSERT INTO messages (id, couple_id, author_id, body, widget_type, widget, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		coupleID,
		m.Author,
		m.Text,
		widgetType,
		widgetJSON,
		m.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("archive: insert: %w", err)
	}
	return nil
}

// List returns up to limit of the couple's messages sent before the given
// instant, oldest first. A zero before means now.
func (s *Store) List(ctx context.Context, coupleID string, before time.Time, limit int) ([]chat.Message, error) {
	if limit <= 0 || limit > DefaultPageSize {
		limit = DefaultPageSize
	}
	if before.IsZero() {
		before = time.Now()
	}

	const query = `
		SELECT id, author_id, body, widget, sent_at
		FROM (
			SELECT id, author_id, body, widget, sent_at
			FROM messages
			WHERE couple_id = $1 AND sent_at < $2
			ORDER BY sent_at DESC
			LIMIT $3
		) page
		ORDER BY sent_at ASC`

	rows, err := s.db.QueryContext(ctx, query, coupleID, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.author, &r.body, &r.widget, &r.sentAt); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		m, err := r.message()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	return msgs, nil
}

// Recent returns the couple's latest messages, oldest first. It matches the
// signature of the Redis history store so either can hydrate a timeline.
func (s *Store) Recent(ctx context.Context, coupleID string, n int) ([]chat.Message, error) {
	return s.List(ctx, coupleID, time.Time{}, n)
}

type row struct {
	id     string
	author string
	body   string
	widget []byte
	sentAt time.Time
}

func (r row) message() (chat.Message, error) {
	m := chat.Message{
		ID:        r.id,
		Author:    r.author,
		Text:      r.body,
		Timestamp: r.sentAt.UTC(),
	}
	if len(r.widget) > 0 {
		w, err := widget.Decode(r.widget)
		if err != nil {
			return chat.Message{}, fmt.Errorf("archive: decode widget of %s: %w", r.id, err)
		}
		m.Widget = w
	}
	return m, nil
}
