package engine_test

import (
	"context"
	"errors"
	"testing"

	"cadastra/internal/engine"
	"cadastra/internal/testsupport"
	"cadastra/internal/workunit"
)

func TestProductionFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	worker := testsupport.Operator("W1")

	testsupport.SeedBatch(t, env.store, "R1", "A001", 2)
	if _, err := env.assignment.SelfAssign(ctx, worker, "R1"); err != nil {
		t.Fatalf("SelfAssign failed: %v", err)
	}

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}
	if err := env.progress.Start(ctx, worker, key); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	unit := testsupport.MustGet(t, env.store, key)
	if unit.State != workunit.StateInProgress {
		t.Fatalf("expected in_progress, got %s", unit.State)
	}

	if err := env.progress.Finish(ctx, worker, key); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	unit = testsupport.MustGet(t, env.store, key)
	if unit.State != workunit.StateDone {
		t.Fatalf("expected done, got %s", unit.State)
	}
	if unit.Operator != "W1" {
		t.Fatalf("operator must persist through done, got %q", unit.Operator)
	}

	// Block 2 is untouched by block 1's progress.
	other := testsupport.MustGet(t, env.store, workunit.Key{Region: "R1", Batch: "A001", Block: 2})
	if other.State != workunit.StateAssigned {
		t.Fatalf("expected block 2 assigned, got %s", other.State)
	}

	events, err := env.audit.QueryByWorkUnit(ctx, key)
	if err != nil {
		t.Fatalf("QueryByWorkUnit failed: %v", err)
	}
	want := []string{"assigned", "in_progress", "done"}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, state := range want {
		if events[i].State != state {
			t.Fatalf("event %d: expected %q, got %q", i, state, events[i].State)
		}
	}
}

func TestStartRequiresHoldingOperator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	testsupport.SeedBatch(t, env.store, "R1", "A001", 1)
	if _, err := env.assignment.SelfAssign(ctx, testsupport.Operator("W1"), "R1"); err != nil {
		t.Fatalf("SelfAssign failed: %v", err)
	}

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}
	err := env.progress.Start(ctx, testsupport.Operator("W2"), key)
	if !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	unit := testsupport.MustGet(t, env.store, key)
	if unit.State != workunit.StateAssigned {
		t.Fatalf("refused start must not mutate, got %s", unit.State)
	}
}

func TestStartRejectsWrongStateAndMissingUnit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	worker := testsupport.Operator("W1")

	testsupport.SeedBatch(t, env.store, "R1", "A001", 1)

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}
	if err := env.progress.Start(ctx, worker, key); !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on pending block, got %v", err)
	}

	missing := workunit.Key{Region: "R1", Batch: "A001", Block: 9}
	if err := env.progress.Start(ctx, worker, missing); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkCorrectedOnlyFromRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	worker := testsupport.Operator("W1")
	reviewer := testsupport.Reviewer("Q1")

	produceBatch(t, env, worker, "R1", "A001", 1)
	if _, err := env.qc.ClaimForReview(ctx, reviewer, "R1"); err != nil {
		t.Fatalf("ClaimForReview failed: %v", err)
	}

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}

	// qc_pending is not correctable.
	if err := env.progress.MarkCorrected(ctx, worker, key); !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if err := env.qc.Reject(ctx, reviewer, key, "boundary mismatch"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	// Only the holding operator corrects.
	if err := env.progress.MarkCorrected(ctx, testsupport.Operator("W2"), key); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := env.progress.MarkCorrected(ctx, worker, key); err != nil {
		t.Fatalf("MarkCorrected failed: %v", err)
	}
	unit := testsupport.MustGet(t, env.store, key)
	if unit.State != workunit.StateCorrected {
		t.Fatalf("expected corrected, got %s", unit.State)
	}
	if unit.Stage != workunit.StageProduction {
		t.Fatalf("corrected block must stay in production, got %s", unit.Stage)
	}
	if unit.RejectCount != 1 {
		t.Fatalf("reject count must survive correction, got %d", unit.RejectCount)
	}
}
