package archive

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pookieplum/chat-app/internal/chat"
	"github.com/pookieplum/chat-app/internal/widget"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "migrations/0001_create_messages.up.sql")
	assert.Contains(t, names, "migrations/0001_create_messages.down.sql")
	assert.Len(t, names, 4, "every up migration has a down")
}

func TestRowMessage(t *testing.T) {
	sent := time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)
	m, err := row{
		id: "m1", author: "alice", sentAt: sent,
		widget: []byte(`{"type":"money","amount":850,"currency":"₹"}`),
	}.message()
	require.NoError(t, err)
	assert.Equal(t, widget.Money{Amount: 850, Currency: widget.CurrencyINR}, m.Widget)
	assert.Equal(t, sent, m.Timestamp)

	_, err = row{id: "m2", widget: []byte(`{"amount":1}`)}.message()
	assert.ErrorIs(t, err, widget.ErrMissingType)
}

// newTestStore connects to the database named by TEST_DATABASE_URL and
// applies migrations. Tests using it are skipped when the variable is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, Migrate(dsn))

	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`DELETE FROM messages WHERE couple_id LIKE 'test_%'`)
		db.Close()
	})
	return NewStore(db)
}

func TestArchiveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond).UTC()

	text := chat.Message{ID: uuid.NewString(), Author: "alice", Text: "hi", Timestamp: base}
	card := chat.Message{
		ID: uuid.NewString(), Author: "bob", Timestamp: base.Add(time.Minute),
		Widget: widget.GoneLive{StreamTitle: "Study", Activity: widget.ActivityStudying, IsActive: true},
	}
	require.NoError(t, store.Archive(ctx, "test_couple", text))
	require.NoError(t, store.Archive(ctx, "test_couple", card))
	require.NoError(t, store.Archive(ctx, "test_couple", card), "duplicates are ignored")

	msgs, err := store.Recent(ctx, "test_couple", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, text, msgs[0])
	assert.Equal(t, card, msgs[1])

	older, err := store.List(ctx, "test_couple", base.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "hi", older[0].Text)
}

func TestArchive_RejectsEmpty(t *testing.T) {
	s := NewStore(nil)
	err := s.Archive(context.Background(), "c", chat.Message{ID: "x"})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}
