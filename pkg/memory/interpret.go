package memory

import (
	"encoding/json"
	"strings"
)

// Interpretation is the result of decoding one raw backend reply.
type Interpretation struct {
	// Parsed reports whether an embedded JSON envelope was found and decoded.
	Parsed bool
	// Text is the conversational reply shown to the user. When no envelope
	// parses, this is the raw reply verbatim.
	Text string
	// Fragment holds the envelope's extracted_data; empty when unparsed.
	Fragment Fragment
	// Actions holds the envelope's memory_actions metadata.
	Actions SurfacingActions
	// Proposal is the memory-confirmation candidate, nil unless the envelope
	// carried a well-formed memory_to_confirm object with a title.
	Proposal *Proposal
}

type envelope struct {
	Response  *string          `json:"response"`
	Extracted Fragment         `json:"extracted_data"`
	Actions   SurfacingActions `json:"memory_actions"`
	Confirm   json.RawMessage  `json:"memory_to_confirm"`
}

// Interpret extracts the JSON envelope a backend reply embeds, tolerating
// markdown fences and prose around it. It scans from the first '{' to the
// last '}'; if that substring is not valid JSON, the whole reply is treated
// as plain conversational text. Interpret never fails: a malformed reply
// degrades to text with an empty fragment.
func Interpret(raw string) Interpretation {
	plain := Interpretation{Text: raw, Fragment: emptyFragment()}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return plain
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw[start:end+1]), &env); err != nil {
		return plain
	}

	out := Interpretation{
		Parsed:   true,
		Text:     raw,
		Fragment: env.Extracted,
		Actions:  env.Actions,
	}
	if env.Response != nil {
		out.Text = *env.Response
	}
	if out.Fragment.Categories == nil {
		out.Fragment.Categories = map[string][]any{}
	}
	out.Proposal = decodeProposal(env.Confirm)
	return out
}

// decodeProposal accepts only an object with a non-empty title; null, absent,
// or malformed values yield nil. The backend is told to populate the field
// but it does not always comply.
func decodeProposal(raw json.RawMessage) *Proposal {
	if len(raw) == 0 {
		return nil
	}
	var p Proposal
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil
	}
	return &p
}

func emptyFragment() Fragment {
	return Fragment{Categories: map[string][]any{}}
}
