package intelligence

import (
	"sort"
	"strings"

	"github.com/upperroomlabs/upperroom/internal/types"
	"github.com/upperroomlabs/upperroom/internal/utils"
)

// confidenceSaturation is the memory count at which profile confidence
// reaches 1.0.
const confidenceSaturation = 20

const (
	signaturePhraseWords    = 4
	signaturePhraseMinLen   = 10
	signaturePhraseMaxLen   = 50
	signaturePhraseMinCount = 2
	signaturePhraseKeep     = 5
	verbosityNormalizer     = 200.0
)

var formalWords = []string{
	"therefore", "moreover", "indeed", "thus", "henceforth", "behold",
	"furthermore", "whereas", "consequently", "hereby",
}

var casualWords = []string{
	"yeah", "okay", "well", "really", "kind", "sort", "stuff", "things",
	"maybe", "guess",
}

var directnessMarkers = []string{
	"must", "do not", "let us", "listen", "hear me", "go and", "you shall",
}

var storytellingMarkers = []string{
	"remember when", "in those days", "there was", "once", "when i was",
	"i recall", "it happened",
}

// ComputeStyle derives communication-style dimensions from the full memory
// corpus. Deterministic: no model call.
func ComputeStyle(memories []types.Memory) types.CommunicationStyle {
	if len(memories) == 0 {
		return types.CommunicationStyle{}
	}

	var totalWords, totalQuestions, totalSentences int
	var formal, casual, direct, emotional, storytelling int
	for _, m := range memories {
		lower := strings.ToLower(m.Response)
		words := strings.Fields(lower)
		totalWords += len(words)
		totalQuestions += strings.Count(m.Response, "?")
		totalSentences += len(utils.Sentences(m.Response))

		formal += countAny(lower, formalWords)
		casual += countAny(lower, casualWords)
		direct += countAny(lower, directnessMarkers)
		emotional += countAny(lower, positiveWords) + countAny(lower, negativeWords)
		storytelling += countAny(lower, storytellingMarkers)
	}
	if totalSentences == 0 {
		totalSentences = 1
	}

	avgWords := float64(totalWords) / float64(len(memories))

	style := types.CommunicationStyle{
		Verbosity:      clamp01(avgWords / verbosityNormalizer),
		QuestionAsking: clamp01(float64(totalQuestions) / float64(totalSentences)),
		Directness:     clamp01(float64(direct) / float64(totalSentences)),
		Storytelling:   clamp01(float64(storytelling) / float64(totalSentences)),
	}
	if formal+casual > 0 {
		style.Formality = float64(formal) / float64(formal+casual)
	} else {
		style.Formality = 0.5
	}
	if totalWords > 0 {
		style.EmotionalExpression = clamp01(float64(emotional) / float64(totalWords) * 10)
	}
	return style
}

// MineSignaturePhrases finds recurring 4-word phrases across all memories
// and keeps the most frequent few.
func MineSignaturePhrases(memories []types.Memory) []string {
	counts := make(map[string]int)
	for _, m := range memories {
		words := strings.Fields(strings.ToLower(m.Response))
		for i := 0; i+signaturePhraseWords <= len(words); i++ {
			phrase := strings.Join(words[i:i+signaturePhraseWords], " ")
			phrase = strings.TrimRight(phrase, ".,;:!?\"'")
			if len(phrase) < signaturePhraseMinLen || len(phrase) > signaturePhraseMaxLen {
				continue
			}
			counts[phrase]++
		}
	}

	var phrases []string
	for phrase, n := range counts {
		if n >= signaturePhraseMinCount {
			phrases = append(phrases, phrase)
		}
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		if counts[phrases[i]] != counts[phrases[j]] {
			return counts[phrases[i]] > counts[phrases[j]]
		}
		return phrases[i] < phrases[j]
	})
	if len(phrases) > signaturePhraseKeep {
		phrases = phrases[:signaturePhraseKeep]
	}
	return phrases
}

// ConfidenceFor saturates at confidenceSaturation memories.
func ConfidenceFor(memoryCount int) float64 {
	return clamp01(float64(memoryCount) / confidenceSaturation)
}

func countAny(text string, markers []string) int {
	n := 0
	for _, marker := range markers {
		n += strings.Count(text, marker)
	}
	return n
}
