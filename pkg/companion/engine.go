package companion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/aegiscare/aegis/pkg/config"
	"github.com/aegiscare/aegis/pkg/memory"
	"github.com/aegiscare/aegis/pkg/providers"
)

// Chat log sender labels.
const (
	SenderUser = "User"
	SenderAI   = "Aegis AI"
)

// ErrEmptyMessage rejects chat turns with no message text.
var ErrEmptyMessage = errors.New("no message provided")

// Store is the persistence the engine needs: the context loads plus the
// writes a chat turn and a memory confirmation perform.
type Store interface {
	memory.ContextSource
	SaveMemoryDocument(ctx context.Context, doc memory.Document) error
	AppendChat(ctx context.Context, m memory.ChatMessage) error
}

// Engine runs the conversation loop: session state, context priming, the
// double-mention rule, backend calls, reply interpretation, and the chat log.
type Engine struct {
	provider  providers.Provider
	store     Store
	sessions  *memory.Registry
	assembler *memory.Assembler
	logger    *log.Logger
	now       func() time.Time
}

func NewEngine(provider providers.Provider, store Store, cfg *config.Config, logger *log.Logger) *Engine {
	return &Engine{
		provider: provider,
		store:    store,
		sessions: memory.NewRegistry(),
		assembler: &memory.Assembler{
			Source:          store,
			DefaultLanguage: cfg.Companion.DefaultLanguage,
			RecapLimit:      cfg.Companion.ChatRecapLimit,
		},
		logger: logger,
		now:    time.Now,
	}
}

// ChatResult is the outcome of one conversational turn.
type ChatResult struct {
	Message         string                  `json:"message"`
	ExtractedData   memory.Fragment         `json:"extracted_data"`
	MemoryActions   memory.SurfacingActions `json:"memory_actions"`
	MemoryToConfirm *memory.Proposal        `json:"memory_to_confirm"`
	Timestamp       string                  `json:"timestamp"`
	ChatMessageID   string                  `json:"chat_message_id"`
	SessionID       string                  `json:"session_id"`
}

// Chat runs one turn for the given session. The session lock is held for the
// whole turn, so concurrent requests for one session serialize. On backend
// failure the user turn stays in the session log and no state is rolled back;
// the caller may simply retry.
func (e *Engine) Chat(ctx context.Context, sessionID, message string) (ChatResult, error) {
	if message == "" {
		return ChatResult{}, ErrEmptyMessage
	}

	session := e.sessions.Get(sessionID)
	session.Lock()
	defer session.Unlock()

	topic, repeated := session.RecordMentions(memory.Keywords(message))

	if err := e.assembler.Prime(ctx, session); err != nil {
		return ChatResult{}, err
	}

	userText := message
	if repeated {
		userText = memory.RepeatedTopicDirective(message, topic)
		e.logger.Debug("double mention rule fired", "session", session.ID, "topic", topic)
	}
	session.AppendTurn(memory.Turn{Role: memory.RoleUser, Text: userText})

	raw, err := e.provider.Generate(ctx, toContents(session.Turns()))
	if err != nil {
		return ChatResult{}, fmt.Errorf("generate reply: %w", err)
	}
	session.AppendTurn(memory.Turn{Role: memory.RoleModel, Text: raw})

	interp := memory.Interpret(raw)
	if !interp.Parsed {
		e.logger.Warn("backend reply carried no JSON envelope", "session", session.ID)
	}

	userMsgID := uuid.NewString()
	e.logChat(ctx, session.ID, userMsgID, SenderUser, message)
	e.logChat(ctx, session.ID, uuid.NewString(), SenderAI, interp.Text)

	return ChatResult{
		Message:         interp.Text,
		ExtractedData:   interp.Fragment,
		MemoryActions:   interp.Actions,
		MemoryToConfirm: interp.Proposal,
		Timestamp:       e.now().Format(time.RFC3339),
		ChatMessageID:   userMsgID,
		SessionID:       session.ID,
	}, nil
}

// logChat appends to the durable chat log. Failures are logged, not fatal;
// losing a log line must not fail the whole turn.
func (e *Engine) logChat(ctx context.Context, sessionID, id, sender, content string) {
	err := e.store.AppendChat(ctx, memory.ChatMessage{
		ID:        id,
		Timestamp: e.now().Format(time.RFC3339),
		Sender:    sender,
		Content:   content,
	})
	if err != nil {
		e.logger.Error("failed to append chat log", "session", sessionID, "error", err)
	}
}

// ConfirmMemory persists a confirmed double-mention proposal as a structured
// chat-derived memory and returns the stored record. The raw chat message
// stays in the chat log; only the structured entry lands in the document.
func (e *Engine) ConfirmMemory(ctx context.Context, p memory.Proposal, chatRef, mediaPath string) (memory.Record, error) {
	title := p.Title
	if title == "" {
		title = "Untitled Memory"
	}
	date := e.now().Format("2006-01-02")
	if p.Date != nil && *p.Date != "" {
		date = *p.Date
	}

	rec := memory.Record{
		"id":          uuid.NewString(),
		"title":       title,
		"date":        date,
		"description": p.Description,
		"mediaPath":   nil,
		"source":      "chat",
		"chatRef":     nil,
	}
	if mediaPath != "" {
		rec["mediaPath"] = mediaPath
	}
	if chatRef != "" {
		rec["chatRef"] = chatRef
	}

	doc, err := e.store.LoadMemoryDocument(ctx)
	if err != nil {
		return nil, err
	}
	doc.Memories = append(doc.Memories, rec)
	if err := e.store.SaveMemoryDocument(ctx, doc); err != nil {
		return nil, err
	}
	e.logger.Info("memory confirmed from chat", "title", title, "chat_ref", chatRef)
	return rec, nil
}

// MergeExtracted folds an extracted-data fragment into the durable memory
// document and reports what was skipped.
func (e *Engine) MergeExtracted(ctx context.Context, frag memory.Fragment) (memory.MergeResult, error) {
	doc, err := e.store.LoadMemoryDocument(ctx)
	if err != nil {
		return memory.MergeResult{}, err
	}
	res := memory.Merge(doc, frag)
	for _, d := range res.Skipped {
		e.logger.Warn("skipped invalid extracted item", "category", d.Category, "reason", d.Reason)
	}
	if err := e.store.SaveMemoryDocument(ctx, res.Document); err != nil {
		return memory.MergeResult{}, err
	}
	return res, nil
}

// SessionCount reports how many sessions are live.
func (e *Engine) SessionCount() int {
	return e.sessions.Len()
}

func toContents(turns []memory.Turn) []providers.Content {
	contents := make([]providers.Content, len(turns))
	for i, t := range turns {
		contents[i] = providers.Content{Role: t.Role, Parts: []providers.Part{{Text: t.Text}}}
	}
	return contents
}
