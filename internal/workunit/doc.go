// Package workunit persists field-survey work units in SQLite and exposes
// the conditional-update primitives the lifecycle engines are built on.
//
// A work unit is one block of survey work, identified by (region, batch,
// block). Blocks sharing a region and batch code form a batch, the
// granularity at which claims happen; individual blocks progress and get
// reviewed independently once claimed. All mutation flows through
// ConditionalUpdate, UpdateMany, or UpdateBatch, which apply changes only
// when the row's current state matches an expected value, so two concurrent
// claimers can never both win the same block.
//
// Treat this package as the single source of truth for lifecycle state;
// when you add states or columns, update schema.sql and bump schemaVersion.
package workunit
