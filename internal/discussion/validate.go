package discussion

import (
	"errors"
	"strings"

	"github.com/upperroomlabs/upperroom/internal/utils"
)

// Validation failures are not session errors: the orchestrator retries and
// finally accepts the best candidate.
var (
	ErrTooSimilar = errors.New("response too similar to a prior statement")
	ErrOffTopic   = errors.New("response does not address the question")
)

// Validator checks a candidate response for novelty and topical relevance.
type Validator struct {
	// SimilarityCutoff is the maximum allowed Jaccard similarity against the
	// speaker's own prior statements.
	SimilarityCutoff float64
	// TopicCoverageMin is the minimum share of question content words that
	// must appear in the response.
	TopicCoverageMin float64
	// LongResponseChars marks responses presumed substantive regardless of
	// keyword coverage.
	LongResponseChars int
}

// NewValidator returns a Validator with the calibrated defaults.
func NewValidator() *Validator {
	return &Validator{
		SimilarityCutoff:  0.50,
		TopicCoverageMin:  0.20,
		LongResponseChars: 200,
	}
}

// Validate returns nil when the candidate is acceptable.
func (v *Validator) Validate(candidate, question string, priorStatements []string) error {
	for _, prior := range priorStatements {
		if JaccardSimilarity(candidate, prior) > v.SimilarityCutoff {
			return ErrTooSimilar
		}
	}

	if len(candidate) > v.LongResponseChars {
		// Long responses are presumed substantive.
		return nil
	}
	if coverage(candidate, question) < v.TopicCoverageMin {
		return ErrOffTopic
	}
	return nil
}

// JaccardSimilarity compares the sets of words longer than three characters.
func JaccardSimilarity(a, b string) float64 {
	setA := utils.WordSet(a)
	setB := utils.WordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// coverage is the fraction of the question's content words found in the
// response.
func coverage(candidate, question string) float64 {
	questionWords := utils.ContentWords(question)
	if len(questionWords) == 0 {
		return 1
	}
	lower := strings.ToLower(candidate)
	found := 0
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			found++
		}
	}
	return float64(found) / float64(len(questionWords))
}
