package memory

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/samber/lo"
)

// Fragment is the structured data a single backend reply claims to have newly
// observed, decoded loosely: category items keep their raw JSON shapes so the
// merge can validate them per category.
type Fragment struct {
	// Categories maps category name to raw items. Non-list category values
	// are dropped at decode time.
	Categories map[string][]any
	// Adaptive holds the adaptive_categories mapping; values are either a
	// string or a list.
	Adaptive map[string]any
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.Categories = map[string][]any{}
	f.Adaptive = nil

	for key, body := range raw {
		if key == "adaptive_categories" {
			adaptive := map[string]any{}
			if err := json.Unmarshal(body, &adaptive); err == nil {
				f.Adaptive = adaptive
			}
			continue
		}
		var items []any
		if err := json.Unmarshal(body, &items); err != nil {
			continue
		}
		f.Categories[key] = items
	}
	return nil
}

func (f Fragment) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Categories)+1)
	for key, items := range f.Categories {
		out[key] = items
	}
	if f.Adaptive != nil {
		out["adaptive_categories"] = f.Adaptive
	}
	return json.Marshal(out)
}

// IsEmpty reports whether the fragment carries no data at all.
func (f Fragment) IsEmpty() bool {
	for _, items := range f.Categories {
		if len(items) > 0 {
			return false
		}
	}
	return len(f.Adaptive) == 0
}

// Diagnostic describes one fragment item the merge skipped.
type Diagnostic struct {
	Category string `json:"category"`
	Value    any    `json:"value"`
	Reason   string `json:"reason"`
}

// MergeResult carries the merged document plus the skipped-item diagnostics,
// so the caller decides whether to surface them.
type MergeResult struct {
	Document Document
	Skipped  []Diagnostic
}

// Merge folds a fragment into the document and returns the result; the input
// document is not mutated and the caller persists. The store is additive:
// items are appended only when not already present (string equality for
// string categories, whole-value equality for record categories), wrong-shaped
// items are skipped with a diagnostic, and nothing is ever removed. String
// items from categories outside the fixed set are folded into the adaptive
// map under that category name.
func Merge(doc Document, frag Fragment) MergeResult {
	out := doc
	out.Normalize()
	out.Adaptive = cloneAdaptive(out.Adaptive)

	res := MergeResult{}

	for _, category := range sortedKeys(frag.Categories) {
		items := frag.Categories[category]
		switch {
		case IsDictCategory(category):
			target := out.recordList(category)
			for _, item := range items {
				if isFalsy(item) {
					continue
				}
				m, ok := item.(map[string]any)
				if !ok {
					res.skip(category, item, "expected a record")
					continue
				}
				rec := Record(m)
				if !containsRecord(*target, rec) {
					*target = append(*target, rec)
				}
			}
		case IsFixedCategory(category):
			target := out.stringList(category)
			for _, item := range items {
				if isFalsy(item) {
					continue
				}
				s, ok := item.(string)
				if !ok {
					res.skip(category, item, "expected a string")
					continue
				}
				if !lo.Contains(*target, s) {
					*target = append(*target, s)
				}
			}
		default:
			// The backend invented a top-level category instead of using
			// adaptive_categories; keep the data under the adaptive map.
			for _, item := range items {
				if isFalsy(item) {
					continue
				}
				s, ok := item.(string)
				if !ok {
					res.skip(category, item, "unknown category item is not a string")
					continue
				}
				appendAdaptive(out.Adaptive, category, s)
			}
		}
	}

	for _, key := range sortedKeys(frag.Adaptive) {
		if _, ok := out.Adaptive[key]; !ok {
			out.Adaptive[key] = []string{}
		}
		switch value := frag.Adaptive[key].(type) {
		case string:
			appendAdaptive(out.Adaptive, key, value)
		case []any:
			for _, item := range value {
				s, ok := item.(string)
				if !ok {
					res.skip(key, item, "adaptive item is not a string")
					continue
				}
				appendAdaptive(out.Adaptive, key, s)
			}
		}
	}

	res.Document = out
	return res
}

// MergeStrict rejects the whole fragment when any item would be skipped,
// leaving the document unchanged.
func MergeStrict(doc Document, frag Fragment) (Document, error) {
	res := Merge(doc, frag)
	if len(res.Skipped) > 0 {
		d := res.Skipped[0]
		return doc, fmt.Errorf("fragment rejected: %d invalid item(s), first in %q: %s", len(res.Skipped), d.Category, d.Reason)
	}
	return res.Document, nil
}

func (r *MergeResult) skip(category string, value any, reason string) {
	r.Skipped = append(r.Skipped, Diagnostic{Category: category, Value: value, Reason: reason})
}

func appendAdaptive(adaptive map[string][]string, key, value string) {
	if !lo.Contains(adaptive[key], value) {
		adaptive[key] = append(adaptive[key], value)
	}
}

func containsRecord(list []Record, rec Record) bool {
	return lo.ContainsBy(list, func(existing Record) bool {
		return reflect.DeepEqual(existing, rec)
	})
}

func cloneAdaptive(adaptive map[string][]string) map[string][]string {
	out := make(map[string][]string, len(adaptive))
	for k, v := range adaptive {
		out[k] = append([]string{}, v...)
	}
	return out
}

// sortedKeys makes merge order deterministic; the source JSON object carries
// no reliable ordering once decoded into a map.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isFalsy(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case bool:
		return !value
	case float64:
		return value == 0
	case map[string]any:
		return len(value) == 0
	case []any:
		return len(value) == 0
	}
	return false
}
