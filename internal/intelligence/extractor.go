// Package intelligence maintains the per-figure memory store: recording
// interactions, extracting lexical signals, ranking relevance, and
// synthesizing the evolving profile.
package intelligence

import (
	"regexp"
	"strings"

	"github.com/upperroomlabs/upperroom/internal/types"
	"github.com/upperroomlabs/upperroom/internal/utils"
)

// Extraction holds the signals pulled from one response.
type Extraction struct {
	Claims     []string
	References []string
	Tone       float64
	Importance float64
	TopicKey   string
}

// Extractor turns free text into structured signals. The default is lexical;
// a smarter implementation can be substituted without touching the recorder.
type Extractor interface {
	Extract(context, response string, kind types.InteractionType) Extraction
}

// referencePattern matches scripture-style references: an optional book
// numeral, a book word, then chapter:verse with an optional verse range.
var referencePattern = regexp.MustCompile(`(?:[1-3]\s+)?[A-Z][A-Za-z]+\.?\s+\d+:\d+(?:-\d+)?`)

// claimPattern marks a sentence as a declarative claim worth keeping.
var claimPattern = regexp.MustCompile(`(?i)\b(i believe|i have seen|i have learned|i tell you|we must|god is|god has|god will|the lord|faith is|love is|truth is|it is written|scripture)\b`)

var positiveWords = []string{
	"love", "joy", "peace", "hope", "grace", "mercy", "blessed", "rejoice",
	"good", "faithful", "praise", "glory", "comfort", "gentle", "thankful",
}

var negativeWords = []string{
	"sin", "suffer", "sorrow", "fear", "death", "wrath", "grief", "weep",
	"broken", "darkness", "despair", "lost", "pain", "exile", "betray",
}

// traitCategories maps trait labels to their marker keywords. Ordered so
// each claim yields at most one trait: the first category that matches wins.
var traitCategories = []struct {
	Trait    string
	Keywords []string
}{
	{"faith-centered", []string{"faith", "believe", "trust"}},
	{"emphasizes-love", []string{"love", "compassion", "mercy", "kindness"}},
	{"action-oriented", []string{"must", "act", "obey", "follow", "work"}},
	{"scripture-focused", []string{"written", "scripture", "word", "law"}},
	{"spiritually-minded", []string{"spirit", "prayer", "holy", "soul"}},
	{"acknowledges-suffering", []string{"suffer", "sorrow", "grief", "trial", "weep"}},
}

// LexicalExtractor is the default heuristic implementation. All failures
// degrade to empty results; it never errors.
type LexicalExtractor struct{}

// NewLexicalExtractor returns the default extractor.
func NewLexicalExtractor() *LexicalExtractor {
	return &LexicalExtractor{}
}

// Extract pulls claims, references, tone, importance, and the topic key.
func (e *LexicalExtractor) Extract(context, response string, kind types.InteractionType) Extraction {
	claims := extractClaims(response)
	refs := extractReferences(response)
	return Extraction{
		Claims:     claims,
		References: refs,
		Tone:       scoreTone(response),
		Importance: scoreImportance(len(claims), len(refs), response, kind),
		TopicKey:   DeriveTopicKey(context),
	}
}

// ClassifyClaim returns the single trait label a claim supports, if any.
func ClassifyClaim(claim string) (string, bool) {
	lower := strings.ToLower(claim)
	for _, cat := range traitCategories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				return cat.Trait, true
			}
		}
	}
	return "", false
}

// DeriveTopicKey strips stopwords from context and keeps the first few
// content words.
func DeriveTopicKey(context string) string {
	words := utils.ContentWords(context)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

func extractClaims(response string) []string {
	var claims []string
	for _, sentence := range utils.Sentences(response) {
		if strings.HasSuffix(sentence, "?") {
			continue
		}
		if len(sentence) < 15 || len(sentence) > 220 {
			continue
		}
		if claimPattern.MatchString(sentence) {
			claims = append(claims, sentence)
		}
	}
	return claims
}

func extractReferences(response string) []string {
	matches := referencePattern.FindAllString(response, -1)
	seen := make(map[string]bool, len(matches))
	var refs []string
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if !seen[m] {
			seen[m] = true
			refs = append(refs, m)
		}
	}
	return refs
}

// scoreTone returns the positive share of sentiment-bearing words, 0.5 when
// none appear.
func scoreTone(response string) float64 {
	lower := strings.ToLower(response)
	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	if pos+neg == 0 {
		return 0.5
	}
	return float64(pos) / float64(pos+neg)
}

// scoreImportance combines claim count, reference count, response length,
// and interaction type into a clamped 0-1 score.
func scoreImportance(claimCount, refCount int, response string, kind types.InteractionType) float64 {
	score := 0.2

	if claimCount > 3 {
		claimCount = 3
	}
	score += float64(claimCount) * 0.10

	if refCount > 2 {
		refCount = 2
	}
	score += float64(refCount) * 0.10

	wordCount := len(strings.Fields(response))
	switch {
	case wordCount >= 120:
		score += 0.15
	case wordCount >= 50:
		score += 0.08
	}

	switch kind {
	case types.InteractionTeaching, types.InteractionPrayer:
		score += 0.15
	case types.InteractionGroupDiscussion:
		score += 0.10
	case types.InteractionChat:
		score += 0.05
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
