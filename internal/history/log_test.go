package history_test

import (
	"context"
	"fmt"
	"testing"

	"cadastra/internal/history"
	"cadastra/internal/identity"
	"cadastra/internal/testsupport"
	"cadastra/internal/workunit"
)

func TestAppendStampsIDAndTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	log := history.NewLog(store.DB())
	ctx := context.Background()

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}
	err := log.Append(ctx, history.Event{
		Unit:      key,
		Actor:     "W1",
		ActorRole: identity.RoleOperator,
		Stage:     workunit.StageProduction,
		State:     "assigned",
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := log.QueryByWorkUnit(ctx, key)
	if err != nil {
		t.Fatalf("QueryByWorkUnit failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventID == "" {
		t.Fatal("expected event id to be stamped")
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("expected created_at to be stamped")
	}
	if events[0].Note != "" {
		t.Fatalf("expected empty note, got %q", events[0].Note)
	}
}

func TestAppendRejectsBlankActorAndState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	log := history.NewLog(store.DB())
	ctx := context.Background()

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}
	if err := log.Append(ctx, history.Event{Unit: key, State: "assigned"}); err == nil {
		t.Fatal("expected error for blank actor")
	}
	if err := log.Append(ctx, history.Event{Unit: key, Actor: "W1"}); err == nil {
		t.Fatal("expected error for blank state")
	}
}

func TestQueryByWorkUnitPreservesTransitionOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	log := history.NewLog(store.DB())
	ctx := context.Background()

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}
	states := []string{"assigned", "in_progress", "done", "qc_pending", "rejected(1)", "corrected"}
	for _, state := range states {
		if err := log.Append(ctx, history.Event{
			Unit:      key,
			Actor:     "W1",
			ActorRole: identity.RoleOperator,
			Stage:     workunit.StageProduction,
			State:     state,
		}); err != nil {
			t.Fatalf("Append %s failed: %v", state, err)
		}
	}
	// An event on a neighbouring block must not leak in.
	other := workunit.Key{Region: "R1", Batch: "A001", Block: 2}
	if err := log.Append(ctx, history.Event{Unit: other, Actor: "W2", State: "assigned"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := log.QueryByWorkUnit(ctx, key)
	if err != nil {
		t.Fatalf("QueryByWorkUnit failed: %v", err)
	}
	if len(events) != len(states) {
		t.Fatalf("expected %d events, got %d", len(states), len(events))
	}
	for i, state := range states {
		if events[i].State != state {
			t.Fatalf("event %d: expected state %q, got %q", i, state, events[i].State)
		}
	}
}

func TestQueryByActorNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	log := history.NewLog(store.DB())
	ctx := context.Background()

	for block := 1; block <= 3; block++ {
		err := log.Append(ctx, history.Event{
			Unit:      workunit.Key{Region: "R1", Batch: "A001", Block: block},
			Actor:     "Q1",
			ActorRole: identity.RoleReviewer,
			Stage:     workunit.StageQualityControl,
			State:     "approved",
			Note:      fmt.Sprintf("pass %d", block),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	events, err := log.QueryByActor(ctx, "Q1")
	if err != nil {
		t.Fatalf("QueryByActor failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, block := range []int{3, 2, 1} {
		if events[i].Unit.Block != block {
			t.Fatalf("event %d: expected block %d, got %d", i, block, events[i].Unit.Block)
		}
		if events[i].Note != fmt.Sprintf("pass %d", block) {
			t.Fatalf("event %d: unexpected note %q", i, events[i].Note)
		}
	}
}
