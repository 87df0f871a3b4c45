package memory

import (
	"strings"
	"unicode/utf8"
)

// Topic tokens must be longer than this after punctuation stripping.
const minKeywordLength = 4

const keywordPunctuation = ".,!?\"'"

var stopwords = map[string]struct{}{
	"that": {}, "this": {}, "with": {}, "have": {}, "from": {}, "they": {},
	"were": {}, "been": {}, "would": {}, "could": {}, "should": {},
	"about": {}, "when": {}, "what": {}, "just": {}, "there": {},
	"their": {}, "then": {}, "than": {}, "will": {}, "some": {},
	"also": {}, "which": {},
}

// Keywords extracts candidate topic tokens from an utterance: lowercase,
// whitespace-split, punctuation-stripped, longer than four runes, not a
// stopword. No stemming and no in-turn deduplication; "garden" and "gardens"
// are distinct topics, and duplicate occurrences each count one mention.
func Keywords(utterance string) []string {
	words := strings.Fields(strings.ToLower(utterance))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, keywordPunctuation)
		if utf8.RuneCountInString(w) <= minKeywordLength {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}
