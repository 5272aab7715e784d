package intelligence

import (
	"context"
	"testing"
)

func TestWorkerProcessesScheduledRebuilds(t *testing.T) {
	store := NewStore(nil)
	describer := &stubDescriber{description: "A steady voice."}
	rebuilder := NewRebuilder(store, describer, nil, 1)

	seedMemories(t, store, "moses", 2)

	worker := NewWorker(rebuilder, 4)
	worker.Start(context.Background())

	if !worker.Schedule("moses") {
		t.Fatal("expected schedule to be accepted")
	}
	worker.Close()

	intel, err := store.Snapshot(context.Background(), "moses")
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if intel.Profile.EvolvedDescription != "A steady voice." {
		t.Fatalf("expected rebuild to complete before Close returned, got %q", intel.Profile.EvolvedDescription)
	}
}

func TestWorkerScheduleAfterCloseIsRejected(t *testing.T) {
	rebuilder := NewRebuilder(NewStore(nil), nil, nil, 1)
	worker := NewWorker(rebuilder, 1)
	worker.Start(context.Background())
	worker.Close()

	if worker.Schedule("moses") {
		t.Fatal("expected schedule to be rejected after close")
	}
}

func TestWorkerFullQueueRejectsWithoutBlocking(t *testing.T) {
	rebuilder := NewRebuilder(NewStore(nil), nil, nil, 1)
	// Never started: the queue only fills.
	worker := NewWorker(rebuilder, 1)

	if !worker.Schedule("first") {
		t.Fatal("expected first schedule to be accepted")
	}
	if worker.Schedule("second") {
		t.Fatal("expected a full queue to reject the request")
	}
}
