package intelligence

import (
	"testing"
	"time"

	"github.com/upperroomlabs/upperroom/internal/types"
)

func fixedRetriever(topK int, now time.Time) *Retriever {
	r := NewRetriever(topK)
	r.now = func() time.Time { return now }
	return r
}

func TestRelevantMemoriesPrefersRecent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	intel := types.NewCharacterIntelligence("peter", now)
	intel.Memories = []types.Memory{
		{ID: "old", Response: "forgiveness is a gift", Importance: 0.5, Timestamp: now.Add(-30 * 24 * time.Hour)},
		{ID: "week", Response: "forgiveness is a gift", Importance: 0.5, Timestamp: now.Add(-3 * 24 * time.Hour)},
		{ID: "fresh", Response: "forgiveness is a gift", Importance: 0.5, Timestamp: now.Add(-2 * time.Hour)},
	}

	ranked := fixedRetriever(5, now).RelevantMemories(intel, "what does forgiveness mean")
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked memories, got %d", len(ranked))
	}
	order := []string{ranked[0].Memory.ID, ranked[1].Memory.ID, ranked[2].Memory.ID}
	if order[0] != "fresh" || order[1] != "week" || order[2] != "old" {
		t.Fatalf("expected recency ordering fresh/week/old, got %v", order)
	}
	if ranked[0].Score <= ranked[1].Score || ranked[1].Score <= ranked[2].Score {
		t.Fatalf("expected strictly decreasing scores, got %v", ranked)
	}
}

func TestRelevantMemoriesSkipsNonMatching(t *testing.T) {
	now := time.Now()
	intel := types.NewCharacterIntelligence("peter", now)
	intel.Memories = []types.Memory{
		{ID: "match", Response: "the covenant endures", Importance: 0.5, Timestamp: now},
		{ID: "other", Response: "breakfast by the sea", Importance: 0.9, Timestamp: now},
	}

	ranked := fixedRetriever(5, now).RelevantMemories(intel, "tell me about the covenant")
	if len(ranked) != 1 || ranked[0].Memory.ID != "match" {
		t.Fatalf("expected only the matching memory, got %v", ranked)
	}
}

func TestRelevantMemoriesHonorsTopK(t *testing.T) {
	now := time.Now()
	intel := types.NewCharacterIntelligence("peter", now)
	for i := 0; i < 8; i++ {
		intel.Memories = append(intel.Memories, types.Memory{
			Response:   "mercy triumphs over judgment",
			Importance: 0.5,
			Timestamp:  now,
		})
	}

	ranked := fixedRetriever(2, now).RelevantMemories(intel, "speak of mercy")
	if len(ranked) != 2 {
		t.Fatalf("expected topK to cap results at 2, got %d", len(ranked))
	}
}

func TestRelevantStancesMatchAndOrder(t *testing.T) {
	now := time.Now()
	intel := types.NewCharacterIntelligence("paul", now)
	intel.Stances = map[string]types.TopicStance{
		"grace works":   {Topic: "grace works", Position: "grace alone", DiscussionCount: 2},
		"grace gifts":   {Topic: "grace gifts", Position: "gifts differ", DiscussionCount: 5},
		"temple courts": {Topic: "temple courts", Position: "irrelevant", DiscussionCount: 9},
	}

	stances := fixedRetriever(5, now).RelevantStances(intel, "what is grace")
	if len(stances) != 2 {
		t.Fatalf("expected 2 matching stances, got %v", stances)
	}
	if stances[0].Topic != "grace gifts" || stances[1].Topic != "grace works" {
		t.Fatalf("expected most-discussed first, got %v", stances)
	}
}
