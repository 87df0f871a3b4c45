package memory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Turn roles. Priming turns reuse the user/model roles because the backend
// accepts only those two.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one message in a conversation. Immutable once appended; the ordered
// turn list is the authoritative history sent to the backend.
type Turn struct {
	Role string
	Text string
}

// Record is a structured item in a dict category (memories, daily_routines,
// medications). Fields are free-form; equality is whole-value.
type Record map[string]any

// Field returns a string field from the record, or "" if absent or not a string.
func (r Record) Field(name string) string {
	v, ok := r[name]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// StringList accepts either a JSON string list or a single comma-separated
// string, so languages_spoken can be ["en","fr"] or "en, fr".
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*l = ss
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parts := []string{}
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				parts = append(parts, part)
			}
		}
		*l = parts
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parts := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			parts = append(parts, val)
		default:
			parts = append(parts, fmt.Sprintf("%v", val))
		}
	}
	*l = parts
	return nil
}

// FlexString accepts either a JSON string or a number, so age can be "82" or 82.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(fmt.Sprintf("%v", n))
	return nil
}

// Profile is the flat identity document.
type Profile struct {
	Name              string     `json:"name"`
	Age               FlexString `json:"age"`
	Gender            string     `json:"gender"`
	MedicalConditions string     `json:"medical_conditions"`
	EmergencyContact  string     `json:"emergency_contact"`
	Hobbies           string     `json:"hobbies"`
	Notes             string     `json:"notes"`
	AppLanguage       string     `json:"app_language,omitempty"`
	LanguagesSpoken   StringList `json:"languages_spoken,omitempty"`
}

// Routine is one scheduled activity entry.
type Routine struct {
	ID    string     `json:"id,omitempty"`
	Title string     `json:"title"`
	Time  string     `json:"time"`
	Days  StringList `json:"days"`
}

// FamilyMember is one family/contact entry.
type FamilyMember struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Birthday string `json:"birthday,omitempty"`
}

// ChatMessage is one persisted chat log entry. The log is append-only from
// the engine's perspective.
type ChatMessage struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
}

// Note is one free-form note entry.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Proposal is a memory-confirmation candidate produced when the double-mention
// rule fires. It is transient; persistence happens on an explicit confirm.
type Proposal struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        *string `json:"date"`
}

// SurfacingActions is the per-turn memory-surfacing metadata reported by the
// backend.
type SurfacingActions struct {
	SurfacedMemory     string `json:"surfaced_memory"`
	SurfacingMode      string `json:"surfacing_mode"`
	ReasonForSurfacing string `json:"reason_for_surfacing"`
}
