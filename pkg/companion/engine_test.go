package companion

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aegiscare/aegis/pkg/config"
	"github.com/aegiscare/aegis/pkg/logging"
	"github.com/aegiscare/aegis/pkg/memory"
	"github.com/aegiscare/aegis/pkg/providers"
)

type stubProvider struct {
	replies []string
	fail    error
	calls   [][]providers.Content
}

func (p *stubProvider) Generate(_ context.Context, contents []providers.Content) (string, error) {
	p.calls = append(p.calls, contents)
	if p.fail != nil {
		return "", p.fail
	}
	reply := `{"response": "ok"}`
	if len(p.replies) > 0 {
		reply = p.replies[0]
		p.replies = p.replies[1:]
	}
	return reply, nil
}

type stubStore struct {
	doc      memory.Document
	profile  memory.Profile
	chat     []memory.ChatMessage
	saveErr  error
	chatErr  error
	saveDocs int
}

func (s *stubStore) LoadMemoryDocument(context.Context) (memory.Document, error) {
	return s.doc, nil
}
func (s *stubStore) SaveMemoryDocument(_ context.Context, doc memory.Document) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.doc = doc
	s.saveDocs++
	return nil
}
func (s *stubStore) LoadProfile(context.Context) (memory.Profile, error) { return s.profile, nil }
func (s *stubStore) LoadRoutines(context.Context) ([]memory.Routine, error) {
	return nil, nil
}
func (s *stubStore) LoadFamily(context.Context) ([]memory.FamilyMember, error) {
	return nil, nil
}
func (s *stubStore) LoadChat(context.Context) ([]memory.ChatMessage, error) { return nil, nil }
func (s *stubStore) AppendChat(_ context.Context, m memory.ChatMessage) error {
	if s.chatErr != nil {
		return s.chatErr
	}
	s.chat = append(s.chat, m)
	return nil
}

func newTestEngine(p providers.Provider, s Store) *Engine {
	cfg := config.DefaultConfig()
	return NewEngine(p, s, cfg, logging.NewWriter(io.Discard))
}

func TestEngine_ChatRejectsEmptyMessage(t *testing.T) {
	e := newTestEngine(&stubProvider{}, &stubStore{doc: memory.NewDocument()})

	if _, err := e.Chat(context.Background(), "s1", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestEngine_ChatPrimesSessionOnce(t *testing.T) {
	p := &stubProvider{}
	e := newTestEngine(p, &stubStore{doc: memory.NewDocument()})
	ctx := context.Background()

	if _, err := e.Chat(ctx, "s1", "hello there friend"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, err := e.Chat(ctx, "s1", "how are you today"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	// First call: priming pair + user turn. Second: pair + four turns.
	if got := len(p.calls[0]); got != 3 {
		t.Fatalf("expected 3 turns in first call, got %d", got)
	}
	if got := len(p.calls[1]); got != 5 {
		t.Fatalf("expected 5 turns in second call, got %d", got)
	}
	if !strings.Contains(p.calls[0][0].Parts[0].Text, "memory companion") {
		t.Fatal("expected priming turn first")
	}
}

func TestEngine_ChatInjectsRepeatedTopicDirectiveOnce(t *testing.T) {
	p := &stubProvider{}
	e := newTestEngine(p, &stubStore{doc: memory.NewDocument()})
	ctx := context.Background()

	if _, err := e.Chat(ctx, "s1", "I love my garden"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, err := e.Chat(ctx, "s1", "the garden is blooming"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, err := e.Chat(ctx, "s1", "more garden stories"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	second := p.calls[1]
	if !strings.Contains(second[len(second)-1].Parts[0].Text, "[REPEATED TOPIC: The user has now mentioned 'garden'") {
		t.Fatal("expected directive on second mention")
	}
	third := p.calls[2]
	if strings.Contains(third[len(third)-1].Parts[0].Text, "REPEATED TOPIC") {
		t.Fatal("directive must fire once per topic per session")
	}
}

func TestEngine_ChatLogsRawMessageNotDirective(t *testing.T) {
	s := &stubStore{doc: memory.NewDocument()}
	e := newTestEngine(&stubProvider{replies: []string{
		`{"response": "first"}`,
		`{"response": "noted!"}`,
	}}, s)
	ctx := context.Background()

	if _, err := e.Chat(ctx, "s1", "my garden again"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, err := e.Chat(ctx, "s1", "the garden keeps me busy"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	if len(s.chat) != 4 {
		t.Fatalf("expected 4 chat log entries, got %d", len(s.chat))
	}
	userMsg := s.chat[2]
	if userMsg.Sender != SenderUser || userMsg.Content != "the garden keeps me busy" {
		t.Fatalf("expected raw user message logged, got %+v", userMsg)
	}
	aiMsg := s.chat[3]
	if aiMsg.Sender != SenderAI || aiMsg.Content != "noted!" {
		t.Fatalf("expected conversational text logged, got %+v", aiMsg)
	}
}

func TestEngine_ChatReturnsEnvelopeFields(t *testing.T) {
	e := newTestEngine(&stubProvider{replies: []string{
		`{"response": "lovely", "extracted_data": {"interests": ["painting"]},
		  "memory_actions": {"surfaced_memory": "Summer vacay", "surfacing_mode": "echo", "reason_for_surfacing": "topic"},
		  "memory_to_confirm": {"title": "Garden mornings", "description": "d", "date": null}}`,
	}}, &stubStore{doc: memory.NewDocument()})

	res, err := e.Chat(context.Background(), "s1", "tell me something")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Message != "lovely" {
		t.Fatalf("expected conversational message, got %q", res.Message)
	}
	if res.MemoryActions.SurfacedMemory != "Summer vacay" {
		t.Fatalf("expected memory actions, got %+v", res.MemoryActions)
	}
	if res.MemoryToConfirm == nil || res.MemoryToConfirm.Title != "Garden mornings" {
		t.Fatalf("expected proposal, got %+v", res.MemoryToConfirm)
	}
	if res.ChatMessageID == "" || res.Timestamp == "" || res.SessionID != "s1" {
		t.Fatalf("expected ids filled, got %+v", res)
	}
}

func TestEngine_ChatBackendFailureKeepsUserTurn(t *testing.T) {
	p := &stubProvider{fail: errors.New("boom")}
	s := &stubStore{doc: memory.NewDocument()}
	e := newTestEngine(p, s)
	ctx := context.Background()

	if _, err := e.Chat(ctx, "s1", "hello out there"); err == nil {
		t.Fatal("expected backend error")
	}
	if len(s.chat) != 0 {
		t.Fatalf("failed turn must not reach the chat log, got %v", s.chat)
	}

	// Retry succeeds; the orphan user turn from the failed attempt stays in
	// the session history.
	p.fail = nil
	if _, err := e.Chat(ctx, "s1", "hello again friend"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	last := p.calls[len(p.calls)-1]
	if got := len(last); got != 4 {
		t.Fatalf("expected pair + orphan + retry turns, got %d", got)
	}
}

func TestEngine_ChatLogFailureDoesNotFailTurn(t *testing.T) {
	s := &stubStore{doc: memory.NewDocument(), chatErr: errors.New("disk full")}
	e := newTestEngine(&stubProvider{}, s)

	if _, err := e.Chat(context.Background(), "s1", "hello there"); err != nil {
		t.Fatalf("chat log failure must not fail the turn: %v", err)
	}
}

func TestEngine_ConfirmMemoryAppendsChatDerivedRecord(t *testing.T) {
	s := &stubStore{doc: memory.NewDocument()}
	e := newTestEngine(&stubProvider{}, s)

	date := "2026-03-10"
	rec, err := e.ConfirmMemory(context.Background(), memory.Proposal{
		Title: "Garden mornings", Description: "Mornings in the garden", Date: &date,
	}, "chat-123", "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rec.Field("source") != "chat" || rec.Field("date") != "2026-03-10" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec["chatRef"] != "chat-123" || rec["mediaPath"] != nil {
		t.Fatalf("unexpected refs in %+v", rec)
	}
	if len(s.doc.Memories) != 1 {
		t.Fatalf("expected record persisted, got %v", s.doc.Memories)
	}
}

func TestEngine_ConfirmMemoryDefaults(t *testing.T) {
	s := &stubStore{doc: memory.NewDocument()}
	e := newTestEngine(&stubProvider{}, s)

	rec, err := e.ConfirmMemory(context.Background(), memory.Proposal{}, "", "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if rec.Field("title") != "Untitled Memory" {
		t.Fatalf("expected default title, got %q", rec.Field("title"))
	}
	if rec.Field("date") == "" || rec.Field("id") == "" {
		t.Fatalf("expected generated date and id, got %+v", rec)
	}
}

func TestEngine_MergeExtractedPersistsAndReportsSkips(t *testing.T) {
	s := &stubStore{doc: memory.NewDocument()}
	e := newTestEngine(&stubProvider{}, s)

	frag := memory.Fragment{Categories: map[string][]any{
		"interests": {"painting", 42},
	}}
	res, err := e.MergeExtracted(context.Background(), frag)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected one diagnostic, got %v", res.Skipped)
	}
	if len(s.doc.Interests) != 1 || s.doc.Interests[0] != "painting" {
		t.Fatalf("expected merge persisted, got %v", s.doc.Interests)
	}
}

func TestEngine_SessionsAreIsolated(t *testing.T) {
	p := &stubProvider{}
	e := newTestEngine(p, &stubStore{doc: memory.NewDocument()})
	ctx := context.Background()

	if _, err := e.Chat(ctx, "alpha", "I love my garden"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if _, err := e.Chat(ctx, "beta", "the garden is blooming"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	last := p.calls[len(p.calls)-1]
	if strings.Contains(last[len(last)-1].Parts[0].Text, "REPEATED TOPIC") {
		t.Fatal("mention counts must not leak across sessions")
	}
	if e.SessionCount() != 2 {
		t.Fatalf("expected 2 sessions, got %d", e.SessionCount())
	}
}
