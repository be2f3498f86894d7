package engine_test

import (
	"context"
	"testing"

	"cadastra/internal/config"
	"cadastra/internal/engine"
	"cadastra/internal/history"
	"cadastra/internal/identity"
	"cadastra/internal/logging"
	"cadastra/internal/testsupport"
	"cadastra/internal/workunit"
)

type testEnv struct {
	cfg        *config.Config
	store      *workunit.Store
	audit      *history.Log
	assignment *engine.Assignment
	progress   *engine.Progress
	qc         *engine.QualityControl
}

func newTestEnv(t *testing.T, opts ...testsupport.ConfigOption) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	audit := history.NewLog(store.DB())
	logger := logging.NewNop()
	return &testEnv{
		cfg:        cfg,
		store:      store,
		audit:      audit,
		assignment: engine.NewAssignment(store, audit, logger, cfg),
		progress:   engine.NewProgress(store, audit, logger, cfg),
		qc:         engine.NewQualityControl(store, audit, logger, cfg),
	}
}

// produceBatch walks a seeded batch through assignment and production until
// every block is done and the batch is ready for review pickup.
func produceBatch(t *testing.T, env *testEnv, worker identity.Actor, region, batch string, blocks int) {
	t.Helper()
	ctx := context.Background()

	testsupport.SeedBatch(t, env.store, region, batch, blocks)
	if _, err := env.assignment.ManualAssign(ctx, testsupport.Supervisor("ADMIN"), worker.ID, region, batch); err != nil {
		t.Fatalf("ManualAssign %s/%s: %v", region, batch, err)
	}
	for block := 1; block <= blocks; block++ {
		key := workunit.Key{Region: region, Batch: batch, Block: block}
		if err := env.progress.Start(ctx, worker, key); err != nil {
			t.Fatalf("Start %s: %v", key, err)
		}
		if err := env.progress.Finish(ctx, worker, key); err != nil {
			t.Fatalf("Finish %s: %v", key, err)
		}
	}
}
