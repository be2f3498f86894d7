// Package testsupport provides fixtures shared by the package tests:
// temp-directory configs, store lifecycles, and seeded work units.
package testsupport

import (
	"context"
	"testing"

	"cadastra/internal/config"
	"cadastra/internal/workunit"
)

// MustOpenStore opens a workunit.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *workunit.Store {
	t.Helper()

	store, err := workunit.Open(cfg)
	if err != nil {
		t.Fatalf("workunit.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedBatch creates pending blocks 1..blocks for the given batch.
func SeedBatch(t testing.TB, store *workunit.Store, region, batch string, blocks int) {
	t.Helper()

	for block := 1; block <= blocks; block++ {
		created, err := store.CreatePending(context.Background(), workunit.Key{
			Region: region,
			Batch:  batch,
			Block:  block,
		}, "")
		if err != nil {
			t.Fatalf("CreatePending %s/%s/%d: %v", region, batch, block, err)
		}
		if !created {
			t.Fatalf("CreatePending %s/%s/%d: already exists", region, batch, block)
		}
	}
}

// MustGet fetches a unit that must exist.
func MustGet(t testing.TB, store *workunit.Store, key workunit.Key) *workunit.WorkUnit {
	t.Helper()

	unit, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get %s: %v", key, err)
	}
	if unit == nil {
		t.Fatalf("Get %s: not found", key)
	}
	return unit
}
