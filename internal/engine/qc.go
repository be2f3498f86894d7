package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cadastra/internal/config"
	"cadastra/internal/history"
	"cadastra/internal/identity"
	"cadastra/internal/logging"
	"cadastra/internal/workunit"
)

// QualityControl moves finished and corrected work through review.
type QualityControl struct {
	core
}

// NewQualityControl constructs the review engine.
func NewQualityControl(store *workunit.Store, audit *history.Log, logger *slog.Logger, cfg *config.Config) *QualityControl {
	return &QualityControl{core: newCore(store, audit, logger, cfg)}
}

// ClaimForReview claims the lowest-ordered reviewable batch in the region.
// Batches containing any block the reviewer produced are never offered: a
// worker may not QC their own production. Lost races retry against the next
// candidate up to the configured bound, then report ErrNoneAvailable.
func (q *QualityControl) ClaimForReview(ctx context.Context, reviewer identity.Actor, region string) (*ClaimedBatch, error) {
	const operation = "claim for review"

	if err := requireScope(operation, reviewer, region); err != nil {
		return nil, err
	}
	if reviewer.Role != identity.RoleReviewer {
		return nil, Wrap(ErrForbidden, operation, fmt.Sprintf("role %s cannot claim review work", reviewer.Role), nil)
	}

	claimID := uuid.NewString()
	excluded := make(map[string]struct{})

	for attempt := 0; attempt < q.claimAttempts; attempt++ {
		batches, err := q.store.ListReviewableBatches(ctx, region, reviewer.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}

		candidate := ""
		for _, batch := range batches {
			if _, skip := excluded[batch]; !skip {
				candidate = batch
				break
			}
		}
		if candidate == "" {
			return nil, Wrap(ErrNoneAvailable, operation, region, nil)
		}

		// Rows a competing reviewer already moved are skipped, not failed;
		// both racers issue the same single-statement update, so whichever
		// commits first takes every reviewable block and the loser gets
		// nothing back. The returned rows are exactly the blocks this claim
		// committed, so the events record them and nothing else.
		claimed, err := q.store.UpdateMany(ctx, region, candidate,
			[]workunit.State{workunit.StateDone, workunit.StateCorrected},
			workunit.Mutation{
				State:       workunit.StateQCPending,
				Stage:       workunit.StageQualityControl,
				SetReviewer: true,
				Reviewer:    reviewer.ID,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		if len(claimed) == 0 {
			excluded[candidate] = struct{}{}
			q.logger.Debug("review claim race lost, retrying",
				logging.String(logging.FieldRegion, region),
				logging.String(logging.FieldBatch, candidate),
				logging.String(logging.FieldActor, reviewer.ID),
				logging.String(logging.FieldClaimID, claimID),
			)
			continue
		}

		if err := q.appendBatchEvents(ctx, reviewer, claimed, ""); err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}

		q.logger.Info("review batch claimed",
			logging.String(logging.FieldRegion, region),
			logging.String(logging.FieldBatch, candidate),
			logging.String(logging.FieldActor, reviewer.ID),
			logging.Int("blocks", len(claimed)),
			logging.String(logging.FieldClaimID, claimID),
		)
		return &ClaimedBatch{
			Region:  region,
			Batch:   candidate,
			Blocks:  blockNumbers(claimed),
			ClaimID: claimID,
		}, nil
	}

	return nil, Wrap(ErrNoneAvailable, operation, fmt.Sprintf("%s: claim attempts exhausted", region), nil)
}

// Approve accepts a reviewed block. Approved is terminal: both operator and
// reviewer are released and the approval counter advances.
func (q *QualityControl) Approve(ctx context.Context, reviewer identity.Actor, key workunit.Key, note string) error {
	const operation = "approve block"

	if _, err := q.requireReview(ctx, operation, reviewer, key); err != nil {
		return err
	}

	_, err := q.transition(ctx, operation, reviewer, key, workunit.StateQCPending, workunit.Mutation{
		State:         workunit.StateApproved,
		BumpApprovals: true,
		SetOperator:   true,
		SetReviewer:   true,
	}, note)
	return err
}

// Reject bounces a reviewed block back to production. The original operator
// is preserved so they correct their own work; the rejection counter
// advances and the note is carried into the audit trail.
func (q *QualityControl) Reject(ctx context.Context, reviewer identity.Actor, key workunit.Key, note string) error {
	const operation = "reject block"

	if strings.TrimSpace(note) == "" {
		return Wrap(ErrInvalidTransition, operation, "rejection note is required", nil)
	}
	if _, err := q.requireReview(ctx, operation, reviewer, key); err != nil {
		return err
	}

	_, err := q.transition(ctx, operation, reviewer, key, workunit.StateQCPending, workunit.Mutation{
		State:       workunit.StateRejected,
		Stage:       workunit.StageProduction,
		BumpRejects: true,
		SetReviewer: true,
	}, note)
	return err
}

// requireReview loads the unit and enforces review preconditions.
func (q *QualityControl) requireReview(ctx context.Context, operation string, reviewer identity.Actor, key workunit.Key) (*workunit.WorkUnit, error) {
	if err := requireScope(operation, reviewer, key.Region); err != nil {
		return nil, err
	}

	unit, err := q.requireUnit(ctx, operation, key)
	if err != nil {
		return nil, err
	}
	if unit.State != workunit.StateQCPending {
		return nil, Wrap(ErrInvalidTransition, operation, fmt.Sprintf("%s is %s, expected %s", key, unit.StateLabel(), workunit.StateQCPending), nil)
	}
	if unit.Reviewer != reviewer.ID {
		return nil, Wrap(ErrForbidden, operation, fmt.Sprintf("%s is under review by %s", key, unit.Reviewer), nil)
	}
	return unit, nil
}
