package engine

import (
	"context"
	"fmt"
	"log/slog"

	"cadastra/internal/config"
	"cadastra/internal/history"
	"cadastra/internal/identity"
	"cadastra/internal/workunit"
)

// Progress advances individual blocks through the production stage. Unlike
// claiming, block-level progress does not require batch unanimity.
type Progress struct {
	core
}

// NewProgress constructs the production progress engine.
func NewProgress(store *workunit.Store, audit *history.Log, logger *slog.Logger, cfg *config.Config) *Progress {
	return &Progress{core: newCore(store, audit, logger, cfg)}
}

// Start moves an assigned block into active work.
func (p *Progress) Start(ctx context.Context, worker identity.Actor, key workunit.Key) error {
	return p.advance(ctx, "start block", worker, key, workunit.StateAssigned, workunit.StateInProgress)
}

// Finish marks an in-progress block as done, handing it to the QC pickup
// pool once its batch completes.
func (p *Progress) Finish(ctx context.Context, worker identity.Actor, key workunit.Key) error {
	return p.advance(ctx, "finish block", worker, key, workunit.StateInProgress, workunit.StateDone)
}

// MarkCorrected reports a rejected block as corrected. The block stays in
// the production stage and re-enters the QC pickup pool with the rest of its
// batch.
func (p *Progress) MarkCorrected(ctx context.Context, worker identity.Actor, key workunit.Key) error {
	return p.advance(ctx, "mark corrected", worker, key, workunit.StateRejected, workunit.StateCorrected)
}

func (p *Progress) advance(ctx context.Context, operation string, worker identity.Actor, key workunit.Key, from, to workunit.State) error {
	if err := requireScope(operation, worker, key.Region); err != nil {
		return err
	}

	unit, err := p.requireUnit(ctx, operation, key)
	if err != nil {
		return err
	}
	if unit.State != from {
		return Wrap(ErrInvalidTransition, operation, fmt.Sprintf("%s is %s, expected %s", key, unit.StateLabel(), from), nil)
	}
	if unit.Operator != worker.ID {
		return Wrap(ErrForbidden, operation, fmt.Sprintf("%s is held by %s", key, unit.Operator), nil)
	}

	_, err = p.transition(ctx, operation, worker, key, from, workunit.Mutation{State: to}, "")
	return err
}
