package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aegiscare/aegis/pkg/memory"
)

// Record types for the documents table. Each row holds one whole JSON
// document; reads and writes replace the document as a unit.
const (
	docMemories = "memories"
	docProfile  = "profile"
	docRoutines = "routines"
	docFamily   = "family"
)

// SQLiteStore is the canonical persistent storage for all personal data.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates/opens the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process service. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS documents (
			record_type TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			sender TEXT NOT NULL,
			content TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadDocument(ctx context.Context, recordType string, out any) (bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE record_type = ?`, recordType).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", recordType, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		// A corrupt row degrades to defaults instead of wedging every chat.
		return false, nil
	}
	return true, nil
}

func (s *SQLiteStore) saveDocument(ctx context.Context, recordType string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", recordType, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (record_type, body, updated_at_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(record_type) DO UPDATE SET
			body = excluded.body,
			updated_at_ms = excluded.updated_at_ms`,
		recordType, string(body), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save %s: %w", recordType, err)
	}
	return nil
}

// LoadMemoryDocument returns the memory document, defaulting any missing
// category so a fresh or corrupt row still yields the full schema.
func (s *SQLiteStore) LoadMemoryDocument(ctx context.Context) (memory.Document, error) {
	doc := memory.NewDocument()
	if _, err := s.loadDocument(ctx, docMemories, &doc); err != nil {
		return memory.Document{}, err
	}
	doc.Normalize()
	return doc, nil
}

// SaveMemoryDocument stamps last_updated and persists the whole document.
func (s *SQLiteStore) SaveMemoryDocument(ctx context.Context, doc memory.Document) error {
	doc.Normalize()
	stamp := s.now().Format(time.RFC3339)
	doc.LastUpdated = &stamp
	return s.saveDocument(ctx, docMemories, doc)
}

func (s *SQLiteStore) LoadProfile(ctx context.Context) (memory.Profile, error) {
	var p memory.Profile
	if _, err := s.loadDocument(ctx, docProfile, &p); err != nil {
		return memory.Profile{}, err
	}
	return p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p memory.Profile) error {
	return s.saveDocument(ctx, docProfile, p)
}

func (s *SQLiteStore) LoadRoutines(ctx context.Context) ([]memory.Routine, error) {
	routines := []memory.Routine{}
	if _, err := s.loadDocument(ctx, docRoutines, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (s *SQLiteStore) SaveRoutines(ctx context.Context, routines []memory.Routine) error {
	if routines == nil {
		routines = []memory.Routine{}
	}
	return s.saveDocument(ctx, docRoutines, routines)
}

func (s *SQLiteStore) LoadFamily(ctx context.Context) ([]memory.FamilyMember, error) {
	family := []memory.FamilyMember{}
	if _, err := s.loadDocument(ctx, docFamily, &family); err != nil {
		return nil, err
	}
	return family, nil
}

func (s *SQLiteStore) SaveFamily(ctx context.Context, family []memory.FamilyMember) error {
	if family == nil {
		family = []memory.FamilyMember{}
	}
	return s.saveDocument(ctx, docFamily, family)
}

// LoadChat returns the full chat log in insertion order.
func (s *SQLiteStore) LoadChat(ctx context.Context) ([]memory.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, sender, content FROM chat_messages ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load chat log: %w", err)
	}
	defer rows.Close()

	messages := []memory.ChatMessage{}
	for rows.Next() {
		var m memory.ChatMessage
		if err := rows.Scan(&m.ID, &m.Timestamp, &m.Sender, &m.Content); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AppendChat adds one message to the end of the chat log.
func (s *SQLiteStore) AppendChat(ctx context.Context, m memory.ChatMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, timestamp, sender, content) VALUES (?, ?, ?, ?)`,
		m.ID, m.Timestamp, m.Sender, m.Content)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// ReplaceChat swaps the whole chat log for the given messages.
func (s *SQLiteStore) ReplaceChat(ctx context.Context, messages []memory.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace chat log: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages`); err != nil {
		return fmt.Errorf("clear chat log: %w", err)
	}
	for _, m := range messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (id, timestamp, sender, content) VALUES (?, ?, ?, ?)`,
			m.ID, m.Timestamp, m.Sender, m.Content); err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}
	return tx.Commit()
}

// LoadNotes returns all notes in creation order.
func (s *SQLiteStore) LoadNotes(ctx context.Context) ([]memory.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, created_at FROM notes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	notes := []memory.Note{}
	for rows.Next() {
		var n memory.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AddNote stores a new note, filling in id, default title, and timestamp.
func (s *SQLiteStore) AddNote(ctx context.Context, title, content string) (memory.Note, error) {
	if title == "" {
		title = "Untitled Note"
	}
	n := memory.Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: s.now().Format(time.RFC3339),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.Title, n.Content, n.CreatedAt)
	if err != nil {
		return memory.Note{}, fmt.Errorf("add note: %w", err)
	}
	return n, nil
}

// ReplaceNotes swaps the whole notes list, used for bulk sync.
func (s *SQLiteStore) ReplaceNotes(ctx context.Context, notes []memory.Note) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace notes: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	for _, n := range notes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notes (id, title, content, created_at) VALUES (?, ?, ?, ?)`,
			n.ID, n.Title, n.Content, n.CreatedAt); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
	}
	return tx.Commit()
}
