package utils

import "strings"

var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"from": true, "have": true, "what": true, "when": true, "where": true,
	"which": true, "would": true, "could": true, "should": true, "about": true,
	"there": true, "their": true, "they": true, "them": true, "then": true,
	"than": true, "your": true, "will": true, "were": true, "been": true,
	"being": true, "into": true, "because": true, "does": true, "doing": true,
	"also": true, "very": true, "just": true, "more": true, "most": true,
	"some": true, "such": true, "only": true, "other": true, "over": true,
	"after": true, "before": true, "between": true, "through": true,
	"these": true, "those": true, "here": true, "each": true, "both": true,
	"many": true, "much": true, "even": true, "still": true, "upon": true,
	"shall": true, "unto": true, "thee": true, "thou": true, "thine": true,
}

// IsStopword reports whether a lowercase word carries no topical weight.
func IsStopword(word string) bool {
	return stopwords[word]
}

// Words splits text into lowercase tokens with surrounding punctuation
// trimmed.
func Words(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Trim(f, ".,;:!?\"'()[]“”‘’—-")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// ContentWords returns the topical words of text: longer than three
// characters and not stopwords.
func ContentWords(text string) []string {
	var out []string
	for _, w := range Words(text) {
		if len(w) > 3 && !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}

// Sentences splits text on terminal punctuation, keeping non-empty trimmed
// sentences.
func Sentences(text string) []string {
	var out []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// WordSet returns the set of words longer than three characters, used for
// overlap comparisons.
func WordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range Words(text) {
		if len(w) > 3 {
			set[w] = true
		}
	}
	return set
}
