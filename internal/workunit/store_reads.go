package workunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ListPendingBatches returns batch codes in the region whose blocks are all
// pending, in lexicographic order. A batch is only claimable as a whole
// while fully unclaimed.
func (s *Store) ListPendingBatches(ctx context.Context, region string) ([]string, error) {
	return s.listBatchCodes(
		ctx,
		`SELECT batch_code FROM work_units
         WHERE region = ?
         GROUP BY batch_code
         HAVING SUM(CASE WHEN state <> ? THEN 1 ELSE 0 END) = 0
         ORDER BY batch_code`,
		region, StatePending,
	)
}

// ListFinishedBatches returns batch codes in the region whose blocks are all
// done, in lexicographic order.
func (s *Store) ListFinishedBatches(ctx context.Context, region string) ([]string, error) {
	return s.listBatchCodes(
		ctx,
		`SELECT batch_code FROM work_units
         WHERE region = ?
         GROUP BY batch_code
         HAVING SUM(CASE WHEN state <> ? THEN 1 ELSE 0 END) = 0
         ORDER BY batch_code`,
		region, StateDone,
	)
}

// ListReviewableBatches returns batch codes eligible for a QC claim by the
// given reviewer: at least one block awaiting review (done or corrected), no
// block still in production or under another reviewer, and no block the
// candidate reviewer produced themselves.
func (s *Store) ListReviewableBatches(ctx context.Context, region, reviewer string) ([]string, error) {
	return s.listBatchCodes(
		ctx,
		`SELECT batch_code FROM work_units
         WHERE region = ?
         GROUP BY batch_code
         HAVING SUM(CASE WHEN state IN (?, ?) THEN 1 ELSE 0 END) > 0
            AND SUM(CASE WHEN state NOT IN (?, ?, ?) THEN 1 ELSE 0 END) = 0
            AND SUM(CASE WHEN operator = ? THEN 1 ELSE 0 END) = 0
         ORDER BY batch_code`,
		region,
		StateDone, StateCorrected,
		StateDone, StateCorrected, StateApproved,
		reviewer,
	)
}

// ActiveBatchForOperator returns the batch code of the operator's active
// production claim, or "" when the operator holds nothing.
func (s *Store) ActiveBatchForOperator(ctx context.Context, operator string) (string, error) {
	args := make([]any, 0, len(activeProductionStates)+1)
	args = append(args, operator)
	for _, state := range activeProductionStates {
		args = append(args, state)
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT region || '/' || batch_code FROM work_units
         WHERE operator = ? AND state IN (`+makePlaceholders(len(activeProductionStates))+`)
         ORDER BY region, batch_code LIMIT 1`,
		args...,
	)
	var batch string
	if err := row.Scan(&batch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("active batch for operator: %w", err)
	}
	return batch, nil
}

// ListBatch returns every block of a batch ordered by block number.
func (s *Store) ListBatch(ctx context.Context, region, batch string) ([]*WorkUnit, error) {
	return s.listUnits(
		ctx,
		`SELECT `+unitColumns+` FROM work_units
         WHERE region = ? AND batch_code = ?
         ORDER BY block_number`,
		region, batch,
	)
}

// ListByRegion returns all units in a region, optionally filtered by state.
func (s *Store) ListByRegion(ctx context.Context, region string, states ...State) ([]*WorkUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM work_units WHERE region = ?`
	args := []any{region}
	if len(states) > 0 {
		query += ` AND state IN (` + makePlaceholders(len(states)) + `)`
		for _, state := range states {
			args = append(args, state)
		}
	}
	query += ` ORDER BY batch_code, block_number`
	return s.listUnits(ctx, query, args...)
}

// ListByOperator returns every unit currently attributed to an operator.
func (s *Store) ListByOperator(ctx context.Context, operator string) ([]*WorkUnit, error) {
	return s.listUnits(
		ctx,
		`SELECT `+unitColumns+` FROM work_units
         WHERE operator = ?
         ORDER BY region, batch_code, block_number`,
		operator,
	)
}

// ListByReviewer returns every unit currently held by a reviewer.
func (s *Store) ListByReviewer(ctx context.Context, reviewer string) ([]*WorkUnit, error) {
	return s.listUnits(
		ctx,
		`SELECT `+unitColumns+` FROM work_units
         WHERE reviewer = ?
         ORDER BY region, batch_code, block_number`,
		reviewer,
	)
}

// Stats returns a count of units in a region grouped by state.
func (s *Store) Stats(ctx context.Context, region string) (map[State]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT state, COUNT(1) FROM work_units WHERE region = ? GROUP BY state`,
		region,
	)
	if err != nil {
		return nil, fmt.Errorf("work unit stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var state State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// BatchSummaries aggregates per-batch block counts by state for a region.
func (s *Store) BatchSummaries(ctx context.Context, region string) ([]BatchSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT batch_code, state, COUNT(1) FROM work_units
         WHERE region = ?
         GROUP BY batch_code, state
         ORDER BY batch_code`,
		region,
	)
	if err != nil {
		return nil, fmt.Errorf("batch summaries: %w", err)
	}
	defer rows.Close()

	var summaries []BatchSummary
	index := make(map[string]int)
	for rows.Next() {
		var batch string
		var state State
		var count int
		if err := rows.Scan(&batch, &state, &count); err != nil {
			return nil, err
		}
		i, ok := index[batch]
		if !ok {
			summaries = append(summaries, BatchSummary{
				Region: region,
				Batch:  batch,
				States: make(map[State]int),
			})
			i = len(summaries) - 1
			index[batch] = i
		}
		summaries[i].States[state] += count
		summaries[i].Blocks += count
	}
	return summaries, rows.Err()
}

func (s *Store) listBatchCodes(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batch codes: %w", err)
	}
	defer rows.Close()

	var batches []string
	for rows.Next() {
		var batch string
		if err := rows.Scan(&batch); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

func (s *Store) listUnits(ctx context.Context, query string, args ...any) ([]*WorkUnit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work units: %w", err)
	}
	defer rows.Close()

	var units []*WorkUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}
