package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegiscare/aegis/pkg/memory"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "aegis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_MemoryDocumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := s.LoadMemoryDocument(ctx)
	require.NoError(t, err)
	require.NotNil(t, doc.Memories, "fresh document must carry the full schema")
	require.NotNil(t, doc.Adaptive)

	doc.Interests = append(doc.Interests, "painting")
	doc.Memories = append(doc.Memories, memory.Record{"title": "Summer vacay"})
	require.NoError(t, s.SaveMemoryDocument(ctx, doc))

	got, err := s.LoadMemoryDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"painting"}, got.Interests)
	require.Len(t, got.Memories, 1)
	assert.Equal(t, "Summer vacay", got.Memories[0].Field("title"))
	require.NotNil(t, got.LastUpdated)
	assert.NotEmpty(t, *got.LastUpdated)
}

func TestSQLiteStore_ProfileDefaultsWhenMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Empty(t, p.Name)
	assert.Empty(t, p.Age)

	p.Name = "Rose"
	p.Age = "82"
	require.NoError(t, s.SaveProfile(ctx, p))

	got, err := s.LoadProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rose", got.Name)
	assert.Equal(t, memory.FlexString("82"), got.Age)
}

func TestSQLiteStore_RoutinesAndFamilyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	routines := []memory.Routine{{ID: "r1", Title: "Morning walk", Time: "08:00", Days: memory.StringList{"mon"}}}
	require.NoError(t, s.SaveRoutines(ctx, routines))
	gotRoutines, err := s.LoadRoutines(ctx)
	require.NoError(t, err)
	assert.Equal(t, routines, gotRoutines)

	family := []memory.FamilyMember{{ID: "f1", Name: "Tom", Relation: "son"}}
	require.NoError(t, s.SaveFamily(ctx, family))
	gotFamily, err := s.LoadFamily(ctx)
	require.NoError(t, err)
	assert.Equal(t, family, gotFamily)
}

func TestSQLiteStore_ChatAppendAndReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := memory.ChatMessage{ID: "m1", Timestamp: "t1", Sender: "User", Content: "hello"}
	second := memory.ChatMessage{ID: "m2", Timestamp: "t2", Sender: "Aegis AI", Content: "hi there"}
	require.NoError(t, s.AppendChat(ctx, first))
	require.NoError(t, s.AppendChat(ctx, second))

	log, err := s.LoadChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, []memory.ChatMessage{first, second}, log)

	replacement := []memory.ChatMessage{{ID: "m9", Timestamp: "t9", Sender: "User", Content: "fresh start"}}
	require.NoError(t, s.ReplaceChat(ctx, replacement))

	log, err = s.LoadChat(ctx)
	require.NoError(t, err)
	assert.Equal(t, replacement, log)
}

func TestSQLiteStore_NotesDefaultTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.AddNote(ctx, "", "remember the tulips")
	require.NoError(t, err)
	assert.Equal(t, "Untitled Note", n.Title)
	assert.NotEmpty(t, n.ID)
	assert.NotEmpty(t, n.CreatedAt)

	notes, err := s.LoadNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "remember the tulips", notes[0].Content)
}

func TestSQLiteStore_ReplaceNotesBulkSync(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddNote(ctx, "old", "gone after sync")
	require.NoError(t, err)

	replacement := []memory.Note{{ID: "n9", Title: "kept", Content: "c", CreatedAt: "t"}}
	require.NoError(t, s.ReplaceNotes(ctx, replacement))

	notes, err := s.LoadNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, replacement, notes)
}
