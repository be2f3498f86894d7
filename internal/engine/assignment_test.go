package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"cadastra/internal/engine"
	"cadastra/internal/identity"
	"cadastra/internal/testsupport"
	"cadastra/internal/workunit"
)

func TestSelfAssignClaimsLowestPendingBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	testsupport.SeedBatch(t, env.store, "R1", "A002", 2)
	testsupport.SeedBatch(t, env.store, "R1", "A001", 3)

	worker := testsupport.Operator("W1")
	claimed, err := env.assignment.SelfAssign(ctx, worker, "R1")
	if err != nil {
		t.Fatalf("SelfAssign failed: %v", err)
	}
	if claimed.Batch != "A001" {
		t.Fatalf("expected lowest batch A001, got %s", claimed.Batch)
	}
	if len(claimed.Blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %v", claimed.Blocks)
	}
	if claimed.ClaimID == "" {
		t.Fatal("expected a claim id")
	}

	for _, block := range claimed.Blocks {
		key := workunit.Key{Region: "R1", Batch: "A001", Block: block}
		unit := testsupport.MustGet(t, env.store, key)
		if unit.State != workunit.StateAssigned || unit.Operator != "W1" {
			t.Fatalf("block %d not claimed by W1: %s/%s", block, unit.State, unit.Operator)
		}
		events, err := env.audit.QueryByWorkUnit(ctx, key)
		if err != nil {
			t.Fatalf("QueryByWorkUnit failed: %v", err)
		}
		if len(events) != 1 || events[0].State != "assigned" || events[0].Actor != "W1" {
			t.Fatalf("block %d: unexpected audit events %+v", block, events)
		}
	}

	// The other batch is untouched.
	unit := testsupport.MustGet(t, env.store, workunit.Key{Region: "R1", Batch: "A002", Block: 1})
	if unit.State != workunit.StatePending {
		t.Fatalf("A002 should stay pending, got %s", unit.State)
	}
}

func TestSelfAssignRefusesSecondActiveBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	testsupport.SeedBatch(t, env.store, "R1", "A001", 1)
	testsupport.SeedBatch(t, env.store, "R1", "A002", 1)

	worker := testsupport.Operator("W1")
	if _, err := env.assignment.SelfAssign(ctx, worker, "R1"); err != nil {
		t.Fatalf("first SelfAssign failed: %v", err)
	}

	_, err := env.assignment.SelfAssign(ctx, worker, "R1")
	if !errors.Is(err, engine.ErrAlreadyHasActiveBatch) {
		t.Fatalf("expected ErrAlreadyHasActiveBatch, got %v", err)
	}
}

func TestSelfAssignNoneAvailable(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.assignment.SelfAssign(context.Background(), testsupport.Operator("W1"), "R1")
	if !errors.Is(err, engine.ErrNoneAvailable) {
		t.Fatalf("expected ErrNoneAvailable, got %v", err)
	}
}

func TestSelfAssignEnforcesRoleAndScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	testsupport.SeedBatch(t, env.store, "R1", "A001", 1)

	if _, err := env.assignment.SelfAssign(ctx, testsupport.Reviewer("Q1"), "R1"); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for reviewer role, got %v", err)
	}

	scoped := identity.Actor{ID: "W1", Role: identity.RoleOperator, Region: "R2"}
	if _, err := env.assignment.SelfAssign(ctx, scoped, "R1"); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for out-of-scope actor, got %v", err)
	}

	if _, err := env.assignment.SelfAssign(ctx, identity.Actor{}, "R1"); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for anonymous actor, got %v", err)
	}
}

// TestSelfAssignConcurrentWorkersSplitBatches floods SelfAssign with far
// more workers than batches. Losers must come back as ErrNoneAvailable,
// never as a raw storage error: every connection carries a busy_timeout, so
// writer contention waits instead of failing, and a lost race is absorbed
// by the retry loop.
func TestSelfAssignConcurrentWorkersSplitBatches(t *testing.T) {
	env := newTestEnv(t, testsupport.WithClaimRetryAttempts(5))
	ctx := context.Background()

	testsupport.SeedBatch(t, env.store, "R1", "A001", 3)
	testsupport.SeedBatch(t, env.store, "R1", "A002", 3)

	const workers = 12
	var wg sync.WaitGroup
	results := make([]*engine.ClaimedBatch, workers)
	failures := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimed, err := env.assignment.SelfAssign(ctx, testsupport.Operator(fmt.Sprintf("W%d", i)), "R1")
			results[i] = claimed
			failures[i] = err
		}(i)
	}
	wg.Wait()

	claimedBatches := make(map[string]string)
	for i := 0; i < workers; i++ {
		switch {
		case failures[i] == nil:
			if owner, taken := claimedBatches[results[i].Batch]; taken {
				t.Fatalf("batch %s claimed by both %s and W%d", results[i].Batch, owner, i)
			}
			claimedBatches[results[i].Batch] = fmt.Sprintf("W%d", i)
			if len(results[i].Blocks) != 3 {
				t.Fatalf("worker %d claimed a partial batch: %v", i, results[i].Blocks)
			}
		case errors.Is(failures[i], engine.ErrNoneAvailable):
		default:
			t.Fatalf("worker %d: unexpected error %v", i, failures[i])
		}
	}
	if len(claimedBatches) != 2 {
		t.Fatalf("expected both batches claimed, got %v", claimedBatches)
	}

	// Every block of each batch ends up with its single winning operator.
	for batch, owner := range claimedBatches {
		for block := 1; block <= 3; block++ {
			unit := testsupport.MustGet(t, env.store, workunit.Key{Region: "R1", Batch: batch, Block: block})
			if unit.Operator != owner || unit.State != workunit.StateAssigned {
				t.Fatalf("%s/%d: expected %s/assigned, got %s/%s", batch, block, owner, unit.Operator, unit.State)
			}
		}
	}
}

func TestManualAssign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testsupport.Supervisor("ADMIN")

	testsupport.SeedBatch(t, env.store, "R1", "A001", 2)

	claimed, err := env.assignment.ManualAssign(ctx, admin, "W1", "R1", "A001")
	if err != nil {
		t.Fatalf("ManualAssign failed: %v", err)
	}
	if len(claimed.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %v", claimed.Blocks)
	}

	key := workunit.Key{Region: "R1", Batch: "A001", Block: 1}
	unit := testsupport.MustGet(t, env.store, key)
	if unit.State != workunit.StateAssigned || unit.Operator != "W1" {
		t.Fatalf("block not assigned to W1: %s/%s", unit.State, unit.Operator)
	}

	// The audit trail records the supervisor, not the worker.
	events, err := env.audit.QueryByWorkUnit(ctx, key)
	if err != nil {
		t.Fatalf("QueryByWorkUnit failed: %v", err)
	}
	if len(events) != 1 || events[0].Actor != "ADMIN" || events[0].Note != "assigned to W1" {
		t.Fatalf("unexpected audit events %+v", events)
	}

	// Already assigned: not fully pending.
	if _, err := env.assignment.ManualAssign(ctx, admin, "W2", "R1", "A001"); !errors.Is(err, engine.ErrNotFullyPending) {
		t.Fatalf("expected ErrNotFullyPending, got %v", err)
	}
	// Unknown batch.
	if _, err := env.assignment.ManualAssign(ctx, admin, "W2", "R1", "ZZZZ"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Operators cannot hand out work.
	if _, err := env.assignment.ManualAssign(ctx, testsupport.Operator("W1"), "W2", "R1", "A001"); !errors.Is(err, engine.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
