package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cadastra/internal/config"
	"cadastra/internal/history"
	"cadastra/internal/identity"
	"cadastra/internal/logging"
	"cadastra/internal/workunit"
)

// defaultClaimAttempts bounds the retry loop of claim operations when the
// configuration does not say otherwise.
const defaultClaimAttempts = 3

// ClaimedBatch reports a successful batch claim.
type ClaimedBatch struct {
	Region string
	Batch  string
	Blocks []int
	// ClaimID correlates the claim's log lines and history events.
	ClaimID string
}

type core struct {
	store         *workunit.Store
	audit         *history.Log
	logger        *slog.Logger
	claimAttempts int
}

func newCore(store *workunit.Store, audit *history.Log, logger *slog.Logger, cfg *config.Config) core {
	attempts := defaultClaimAttempts
	if cfg != nil && cfg.Engine.ClaimRetryAttempts > 0 {
		attempts = cfg.Engine.ClaimRetryAttempts
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return core{
		store:         store,
		audit:         audit,
		logger:        logger,
		claimAttempts: attempts,
	}
}

// requireUnit fetches a unit and maps absence onto ErrNotFound.
func (c core) requireUnit(ctx context.Context, operation string, key workunit.Key) (*workunit.WorkUnit, error) {
	unit, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if unit == nil {
		return nil, Wrap(ErrNotFound, operation, key.String(), nil)
	}
	return unit, nil
}

// requireScope enforces the actor's region scope.
func requireScope(operation string, actor identity.Actor, region string) error {
	if !actor.Valid() {
		return Wrap(ErrForbidden, operation, "incomplete caller identity", nil)
	}
	if !actor.ScopedTo(region) {
		return Wrap(ErrForbidden, operation, fmt.Sprintf("actor %s is scoped to region %s", actor.ID, actor.Region), nil)
	}
	return nil
}

// transition runs a single-row CAS and appends the audit event. A lost CAS
// means the caller's precondition no longer holds, so it surfaces as
// ErrInvalidTransition; ErrConflict stays internal to claim loops. The unit
// recorded in the event is the row the update statement itself committed,
// never a reload, so a transition racing in right after this one cannot
// leak its state into this event.
func (c core) transition(ctx context.Context, operation string, actor identity.Actor, key workunit.Key, expected workunit.State, mut workunit.Mutation, note string) (*workunit.WorkUnit, error) {
	unit, err := c.store.ConditionalUpdate(ctx, key, expected, mut)
	if err != nil {
		switch {
		case errors.Is(err, workunit.ErrNotFound):
			return nil, Wrap(ErrNotFound, operation, key.String(), nil)
		case errors.Is(err, workunit.ErrConflict):
			return nil, Wrap(ErrInvalidTransition, operation, "", err)
		default:
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
	}

	if err := c.appendEvent(ctx, actor, unit, note); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	c.logger.Info("work unit transition",
		logging.String(logging.FieldOperation, operation),
		logging.String(logging.FieldRegion, key.Region),
		logging.String(logging.FieldBatch, key.Batch),
		logging.Int(logging.FieldBlock, key.Block),
		logging.String(logging.FieldActor, actor.ID),
		logging.String(logging.FieldState, unit.StateLabel()),
	)
	return unit, nil
}

// appendEvent writes the audit record for a unit's freshly committed state.
func (c core) appendEvent(ctx context.Context, actor identity.Actor, unit *workunit.WorkUnit, note string) error {
	return c.audit.Append(ctx, history.Event{
		Unit:      unit.Key,
		Actor:     actor.ID,
		ActorRole: actor.Role,
		Stage:     unit.Stage,
		State:     unit.StateLabel(),
		Note:      note,
	})
}

// appendBatchEvents writes one audit record per claimed block.
func (c core) appendBatchEvents(ctx context.Context, actor identity.Actor, units []*workunit.WorkUnit, note string) error {
	for _, unit := range units {
		if err := c.appendEvent(ctx, actor, unit, note); err != nil {
			return err
		}
	}
	return nil
}

func blockNumbers(units []*workunit.WorkUnit) []int {
	blocks := make([]int, 0, len(units))
	for _, unit := range units {
		blocks = append(blocks, unit.Key.Block)
	}
	return blocks
}
