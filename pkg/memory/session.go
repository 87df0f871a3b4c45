package memory

import (
	"strings"
	"sync"
)

// DefaultSessionID is used when the caller supplies no session identifier.
const DefaultSessionID = "default"

type mention struct {
	count    int
	prompted bool
}

// Session holds one conversation's in-process state: the ordered turn log and
// the mention table for the double-mention rule. Callers must hold the
// session's lock for the duration of a chat turn; requests for the same
// session serialize instead of racing.
type Session struct {
	sync.Mutex

	ID string

	turns    []Turn
	mentions map[string]*mention
	primed   bool
}

// Primed reports whether the priming turn pair has been seeded.
func (s *Session) Primed() bool {
	return s.primed
}

// MarkPrimed records that the session bootstrap ran.
func (s *Session) MarkPrimed() {
	s.primed = true
}

// AppendTurn adds a turn to the conversation log.
func (s *Session) AppendTurn(t Turn) {
	s.turns = append(s.turns, t)
}

// Turns returns a copy of the ordered conversation log.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// RecordMentions folds a turn's tokens into the mention table and reports the
// single repeated topic for this turn, if any. For each token in utterance
// order: a new token is inserted with count 1; a known token is incremented,
// and the first token whose count reaches 2 while still unprompted is marked
// prompted and returned. Processing stops there so at most one topic is
// flagged per turn. A token can be flagged at most once per session lifetime.
func (s *Session) RecordMentions(tokens []string) (string, bool) {
	if s.mentions == nil {
		s.mentions = map[string]*mention{}
	}
	for _, tok := range tokens {
		m, ok := s.mentions[tok]
		if !ok {
			s.mentions[tok] = &mention{count: 1}
			continue
		}
		m.count++
		if m.count >= 2 && !m.prompted {
			m.prompted = true
			return tok, true
		}
	}
	return "", false
}

// MentionCount returns the recorded count for a token. Zero means never seen.
func (s *Session) MentionCount(token string) int {
	if m, ok := s.mentions[token]; ok {
		return m.count
	}
	return 0
}

// Registry owns all in-process sessions, created lazily on first use and kept
// for the process lifetime. There is no eviction; an idle-timeout sweep is a
// possible followup if long-running deployments need it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

// Get returns the session for id, creating it if needed. Empty ids map to
// DefaultSessionID.
func (r *Registry) Get(id string) *Session {
	if strings.TrimSpace(id) == "" {
		id = DefaultSessionID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = &Session{ID: id}
		r.sessions[id] = s
	}
	return s
}

// Len reports how many sessions exist.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
