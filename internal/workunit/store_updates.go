package workunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Mutation describes the fields a conditional update may change. State is
// required; zero-valued fields leave their columns untouched. Set flags
// distinguish "clear the column" from "leave it alone".
type Mutation struct {
	State State
	Stage Stage

	SetOperator bool
	Operator    string // empty clears the column

	SetReviewer bool
	Reviewer    string // empty clears the column

	BumpRejects   bool
	BumpApprovals bool
}

func (m Mutation) setClause(now string) (string, []any, error) {
	if _, ok := stateSet[m.State]; !ok {
		return "", nil, fmt.Errorf("mutation state %q is unknown", m.State)
	}
	clauses := []string{"state = ?", "updated_at = ?"}
	args := []any{m.State, now}
	if m.Stage != "" {
		clauses = append(clauses, "stage = ?")
		args = append(args, m.Stage)
	}
	if m.SetOperator {
		clauses = append(clauses, "operator = ?")
		args = append(args, nullableString(m.Operator))
	}
	if m.SetReviewer {
		clauses = append(clauses, "reviewer = ?")
		args = append(args, nullableString(m.Reviewer))
	}
	if m.BumpRejects {
		clauses = append(clauses, "reject_count = reject_count + 1")
	}
	if m.BumpApprovals {
		clauses = append(clauses, "approve_count = approve_count + 1")
	}
	return strings.Join(clauses, ", "), args, nil
}

// ConditionalUpdate applies the mutation to a single work unit only if its
// current state equals expected at the moment of update, and returns the row
// as committed by that statement. The RETURNING clause makes the result part
// of the update itself, so callers recording the outcome (counters included)
// never see a later transition's values. A row in any other state fails with
// ErrConflict and nothing is applied; a missing row fails with ErrNotFound.
// This is the sole single-row mutation path.
func (s *Store) ConditionalUpdate(ctx context.Context, key Key, expected State, mut Mutation) (*WorkUnit, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	setClause, args, err := mut.setClause(now)
	if err != nil {
		return nil, err
	}
	args = append(args, key.Region, key.Batch, key.Block, expected)

	row := s.db.QueryRowContext(
		ctx,
		`UPDATE work_units SET `+setClause+`
         WHERE region = ? AND batch_code = ? AND block_number = ? AND state = ?
         RETURNING `+unitColumns,
		args...,
	)
	unit, err := scanUnit(row)
	if err == nil {
		return unit, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conditional update %s: %w", key, err)
	}

	current, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil, fmt.Errorf("%w: %s is %s, expected %s", ErrConflict, key, current.State, expected)
}

// UpdateMany applies the mutation to every block of a batch whose current
// state is in from, returning the rows as committed, ordered by block
// number. Each row is checked independently: rows already moved by another
// caller are skipped, not failed. An empty result means no row matched.
func (s *Store) UpdateMany(ctx context.Context, region, batch string, from []State, mut Mutation) ([]*WorkUnit, error) {
	if len(from) == 0 {
		return nil, nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	setClause, args, err := mut.setClause(now)
	if err != nil {
		return nil, err
	}
	args = append(args, region, batch)
	for _, state := range from {
		args = append(args, state)
	}

	units, err := s.listUnits(
		ctx,
		`UPDATE work_units SET `+setClause+`
         WHERE region = ? AND batch_code = ?
           AND state IN (`+makePlaceholders(len(from))+`)
         RETURNING `+unitColumns,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update batch %s/%s: %w", region, batch, err)
	}
	sortByBlock(units)
	return units, nil
}

// UpdateBatch is the all-or-none form of UpdateMany: the mutation applies to
// every block of the batch, or to none when any block sits outside from.
// The guard and the update run as one statement, so partial batch claims are
// never observable and there is no read-then-write gap for a racer to slip
// through. Returns the committed rows (the full batch) ordered by block
// number, or none when the batch was missing or not uniformly in from.
func (s *Store) UpdateBatch(ctx context.Context, region, batch string, from []State, mut Mutation) ([]*WorkUnit, error) {
	if len(from) == 0 {
		return nil, nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	setClause, args, err := mut.setClause(now)
	if err != nil {
		return nil, err
	}

	placeholders := makePlaceholders(len(from))
	args = append(args, region, batch)
	for _, state := range from {
		args = append(args, state)
	}
	args = append(args, region, batch)
	for _, state := range from {
		args = append(args, state)
	}

	units, err := s.listUnits(
		ctx,
		`UPDATE work_units SET `+setClause+`
         WHERE region = ? AND batch_code = ?
           AND state IN (`+placeholders+`)
           AND NOT EXISTS (
               SELECT 1 FROM work_units blocked
               WHERE blocked.region = ? AND blocked.batch_code = ?
                 AND blocked.state NOT IN (`+placeholders+`)
           )
         RETURNING `+unitColumns,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update whole batch %s/%s: %w", region, batch, err)
	}
	sortByBlock(units)
	return units, nil
}

func sortByBlock(units []*WorkUnit) {
	sort.Slice(units, func(i, j int) bool {
		return units[i].Key.Block < units[j].Key.Block
	})
}
