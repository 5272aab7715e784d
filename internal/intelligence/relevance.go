package intelligence

import (
	"sort"
	"strings"
	"time"

	"github.com/upperroomlabs/upperroom/internal/types"
	"github.com/upperroomlabs/upperroom/internal/utils"
)

// Recency multipliers favor what was discussed lately without ever letting
// an older memory with equal signals outrank a newer one.
const (
	recencyDayMultiplier  = 1.3
	recencyWeekMultiplier = 1.1
)

// RankedMemory pairs a memory with its relevance score.
type RankedMemory struct {
	Memory types.Memory
	Score  float64
}

// Retriever ranks stored stances and memories against free-text context.
// It is purely lexical: this layer stays free of any retrieval backend.
type Retriever struct {
	topK int
	now  func() time.Time
}

// NewRetriever returns a Retriever keeping the top k results per query.
func NewRetriever(topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{topK: topK, now: time.Now}
}

// RelevantStances returns stances whose topic key overlaps a context word in
// either substring direction, most-discussed first.
func (r *Retriever) RelevantStances(intel *types.CharacterIntelligence, context string) []types.TopicStance {
	words := utils.ContentWords(context)
	var matched []types.TopicStance
	for _, stance := range intel.Stances {
		if topicMatches(stance.Topic, words) {
			matched = append(matched, stance)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].DiscussionCount != matched[j].DiscussionCount {
			return matched[i].DiscussionCount > matched[j].DiscussionCount
		}
		return matched[i].Topic < matched[j].Topic
	})
	if len(matched) > r.topK {
		matched = matched[:r.topK]
	}
	return matched
}

// RelevantMemories scores memories by keyword overlap, recency, and stored
// importance; ties break by importance.
func (r *Retriever) RelevantMemories(intel *types.CharacterIntelligence, context string) []RankedMemory {
	words := utils.ContentWords(context)
	now := r.now()

	var ranked []RankedMemory
	for _, memory := range intel.Memories {
		overlap := overlapCount(words, memoryText(memory))
		if overlap == 0 {
			continue
		}
		score := float64(overlap) * recencyMultiplier(now.Sub(memory.Timestamp)) * memory.Importance
		if score <= 0 {
			continue
		}
		ranked = append(ranked, RankedMemory{Memory: memory, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Memory.Importance > ranked[j].Memory.Importance
	})
	if len(ranked) > r.topK {
		ranked = ranked[:r.topK]
	}
	return ranked
}

func topicMatches(topic string, contextWords []string) bool {
	for _, topicWord := range strings.Fields(topic) {
		for _, w := range contextWords {
			if strings.Contains(w, topicWord) || strings.Contains(topicWord, w) {
				return true
			}
		}
	}
	return false
}

// overlapCount counts context words that substring-match any memory token.
func overlapCount(contextWords []string, memoryTokens []string) int {
	count := 0
	for _, cw := range contextWords {
		for _, token := range memoryTokens {
			if strings.Contains(token, cw) || strings.Contains(cw, token) {
				count++
				break
			}
		}
	}
	return count
}

func memoryText(memory types.Memory) []string {
	var sb strings.Builder
	sb.WriteString(memory.Context)
	sb.WriteString(" ")
	sb.WriteString(memory.UserInput)
	sb.WriteString(" ")
	sb.WriteString(memory.Response)
	return utils.Words(sb.String())
}

func recencyMultiplier(age time.Duration) float64 {
	switch {
	case age < 24*time.Hour:
		return recencyDayMultiplier
	case age < 7*24*time.Hour:
		return recencyWeekMultiplier
	default:
		return 1.0
	}
}
