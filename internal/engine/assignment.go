package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"cadastra/internal/config"
	"cadastra/internal/history"
	"cadastra/internal/identity"
	"cadastra/internal/logging"
	"cadastra/internal/workunit"
)

// Assignment moves pending batches into production under a single operator.
type Assignment struct {
	core
}

// NewAssignment constructs the production claiming engine.
func NewAssignment(store *workunit.Store, audit *history.Log, logger *slog.Logger, cfg *config.Config) *Assignment {
	return &Assignment{core: newCore(store, audit, logger, cfg)}
}

// SelfAssign claims the lowest-ordered fully pending batch in the region for
// the worker. A worker holding any active production block is refused with
// ErrAlreadyHasActiveBatch. Lost claim races retry against the next
// candidate up to the configured attempt bound, then report
// ErrNoneAvailable.
func (a *Assignment) SelfAssign(ctx context.Context, worker identity.Actor, region string) (*ClaimedBatch, error) {
	const operation = "self assign"

	if err := requireScope(operation, worker, region); err != nil {
		return nil, err
	}
	if worker.Role != identity.RoleOperator {
		return nil, Wrap(ErrForbidden, operation, fmt.Sprintf("role %s cannot claim production work", worker.Role), nil)
	}

	active, err := a.store.ActiveBatchForOperator(ctx, worker.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if active != "" {
		return nil, Wrap(ErrAlreadyHasActiveBatch, operation, active, nil)
	}

	claimID := uuid.NewString()
	excluded := make(map[string]struct{})

	for attempt := 0; attempt < a.claimAttempts; attempt++ {
		batches, err := a.store.ListPendingBatches(ctx, region)
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

		units, err := a.store.UpdateBatch(ctx, region, candidate,
			[]workunit.State{workunit.StatePending},
			workunit.Mutation{
				State:       workunit.StateAssigned,
				Stage:       workunit.StageProduction,
				SetOperator: true,
				Operator:    worker.ID,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		if len(units) == 0 {
			// Another caller won this batch between listing and update.
			excluded[candidate] = struct{}{}
			a.logger.Debug("claim race lost, retrying",
				logging.String(logging.FieldRegion, region),
				logging.String(logging.FieldBatch, candidate),
				logging.String(logging.FieldActor, worker.ID),
				logging.String(logging.FieldClaimID, claimID),
			)
			continue
		}

		// Events come from the rows the claim statement committed.
		if err := a.appendBatchEvents(ctx, worker, units, ""); err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}

		a.logger.Info("production batch claimed",
			logging.String(logging.FieldRegion, region),
			logging.String(logging.FieldBatch, candidate),
			logging.String(logging.FieldActor, worker.ID),
			logging.Int("blocks", len(units)),
			logging.String(logging.FieldClaimID, claimID),
		)
		return &ClaimedBatch{
			Region:  region,
			Batch:   candidate,
			Blocks:  blockNumbers(units),
			ClaimID: claimID,
		}, nil
	}

	return nil, Wrap(ErrNoneAvailable, operation, fmt.Sprintf("%s: claim attempts exhausted", region), nil)
}

// ManualAssign places a specific fully pending batch under a worker. It is
// restricted to supervisors and has no partial effect: any block off pending
// fails the whole batch with ErrNotFullyPending.
func (a *Assignment) ManualAssign(ctx context.Context, admin identity.Actor, workerID, region, batch string) (*ClaimedBatch, error) {
	const operation = "manual assign"

	if err := requireScope(operation, admin, region); err != nil {
		return nil, err
	}
	if admin.Role != identity.RoleSupervisor {
		return nil, Wrap(ErrForbidden, operation, fmt.Sprintf("role %s cannot assign work", admin.Role), nil)
	}
	if workerID == "" {
		return nil, Wrap(ErrForbidden, operation, "worker identity is required", nil)
	}

	units, err := a.store.UpdateBatch(ctx, region, batch,
		[]workunit.State{workunit.StatePending},
		workunit.Mutation{
			State:       workunit.StateAssigned,
			Stage:       workunit.StageProduction,
			SetOperator: true,
			Operator:    workerID,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if len(units) == 0 {
		existing, err := a.store.ListBatch(ctx, region, batch)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		if len(existing) == 0 {
			return nil, Wrap(ErrNotFound, operation, fmt.Sprintf("%s/%s", region, batch), nil)
		}
		return nil, Wrap(ErrNotFullyPending, operation, fmt.Sprintf("%s/%s", region, batch), nil)
	}

	note := fmt.Sprintf("assigned to %s", workerID)
	if err := a.appendBatchEvents(ctx, admin, units, note); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	claimID := uuid.NewString()
	a.logger.Info("production batch assigned",
		logging.String(logging.FieldRegion, region),
		logging.String(logging.FieldBatch, batch),
		logging.String(logging.FieldActor, admin.ID),
		logging.String("worker", workerID),
		logging.Int("blocks", len(units)),
		logging.String(logging.FieldClaimID, claimID),
	)
	return &ClaimedBatch{
		Region:  region,
		Batch:   batch,
		Blocks:  blockNumbers(units),
		ClaimID: claimID,
	}, nil
}
