package memory

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ContextSource loads the durable personal data woven into a session's
// priming turn.
type ContextSource interface {
	LoadMemoryDocument(ctx context.Context) (Document, error)
	LoadProfile(ctx context.Context) (Profile, error)
	LoadRoutines(ctx context.Context) ([]Routine, error)
	LoadFamily(ctx context.Context) ([]FamilyMember, error)
	LoadChat(ctx context.Context) ([]ChatMessage, error)
}

// Assembler builds the one-time priming turn pair that bootstraps a session:
// a user turn carrying the behavioral contract plus all personal context, and
// a model turn acknowledging it. Priming runs once per session lifetime.
type Assembler struct {
	Source ContextSource
	// DefaultLanguage is used when the profile has no app_language.
	DefaultLanguage string
	// RecapLimit caps how many trailing chat log entries the recap includes.
	RecapLimit int
	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

// Prime seeds the session with the priming turn pair unless it already ran.
// Load failures abort priming so a degraded context is never baked into the
// session for its whole lifetime.
func (a *Assembler) Prime(ctx context.Context, s *Session) error {
	if s.Primed() {
		return nil
	}

	doc, err := a.Source.LoadMemoryDocument(ctx)
	if err != nil {
		return fmt.Errorf("load memory document: %w", err)
	}
	profile, err := a.Source.LoadProfile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	routines, err := a.Source.LoadRoutines(ctx)
	if err != nil {
		return fmt.Errorf("load routines: %w", err)
	}
	family, err := a.Source.LoadFamily(ctx)
	if err != nil {
		return fmt.Errorf("load family: %w", err)
	}
	chat, err := a.Source.LoadChat(ctx)
	if err != nil {
		return fmt.Errorf("load chat log: %w", err)
	}

	primaryCode := profile.AppLanguage
	if primaryCode == "" {
		primaryCode = a.DefaultLanguage
	}
	if primaryCode == "" {
		primaryCode = "en"
	}
	primaryName := LanguageName(primaryCode)
	spokenList := strings.Join(profile.LanguagesSpoken, ", ")
	if spokenList == "" {
		spokenList = primaryName
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	prompt := systemPrompt +
		languageInstructions(primaryName, primaryCode, spokenList) +
		"\n\nENVIRONMENT CONTEXT:\nCurrent Time: " + now().Format("2006-01-02 15:04") +
		"\n\n" + a.personalContext(profile, routines, doc, family, chat)

	s.AppendTurn(Turn{Role: RoleUser, Text: prompt})
	s.AppendTurn(Turn{Role: RoleModel, Text: primingAck(primaryName, spokenList)})
	s.MarkPrimed()
	return nil
}

// personalContext renders the stored data as labeled plain-text sections.
// Sections with no data are omitted entirely; the profile section always
// appears, even if only as its header.
func (a *Assembler) personalContext(profile Profile, routines []Routine, doc Document, family []FamilyMember, chat []ChatMessage) string {
	parts := []string{}

	var b strings.Builder
	b.WriteString("USER PROFILE:\n")
	if profile.Name != "" {
		fmt.Fprintf(&b, "- Name: %s\n", profile.Name)
	}
	if profile.Age != "" {
		fmt.Fprintf(&b, "- Age: %s\n", profile.Age)
	}
	if profile.MedicalConditions != "" {
		fmt.Fprintf(&b, "- Medical Context: %s\n", profile.MedicalConditions)
	}
	if profile.Hobbies != "" {
		fmt.Fprintf(&b, "- Interests: %s\n", profile.Hobbies)
	}
	parts = append(parts, b.String())

	if len(routines) > 0 {
		var rb strings.Builder
		rb.WriteString("CURRENT ROUTINES:\n")
		for _, r := range routines {
			fmt.Fprintf(&rb, "- %s at %s (%s)\n", r.Title, r.Time, strings.Join(r.Days, ", "))
		}
		parts = append(parts, rb.String())
	}

	if len(doc.Memories) > 0 {
		var mb strings.Builder
		mb.WriteString("STORED MEMORIES:\n")
		for _, m := range doc.Memories {
			fmt.Fprintf(&mb, "- %s: %s\n", m.Field("title"), m.Field("description"))
		}
		parts = append(parts, mb.String())
	}

	if len(family) > 0 {
		var fb strings.Builder
		fb.WriteString("FAMILY & CONTACTS:\n")
		for _, member := range family {
			fmt.Fprintf(&fb, "- %s (%s)", member.Name, member.Relation)
			if member.Birthday != "" {
				fmt.Fprintf(&fb, " - Birthday: %s", member.Birthday)
			}
			fb.WriteString("\n")
		}
		parts = append(parts, fb.String())
	}

	if len(chat) > 0 {
		limit := a.RecapLimit
		if limit <= 0 {
			limit = 10
		}
		recap := chat
		if len(recap) > limit {
			recap = recap[len(recap)-limit:]
		}
		var cb strings.Builder
		cb.WriteString("PAST CONVERSATIONS (RECAP):\n")
		for _, msg := range recap {
			fmt.Fprintf(&cb, "[%s] %s: %s\n", msg.Timestamp, msg.Sender, msg.Content)
		}
		parts = append(parts, cb.String())
	}

	return joinNonEmpty(parts)
}
