package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors forming the caller-facing taxonomy. Every engine operation
// returns one of these wrapped with operation context; none are silently
// swallowed except ErrConflict inside the bounded retry of claim operations.
var (
	// ErrNotFound marks operations referencing a work unit that does not
	// exist. Never retried internally.
	ErrNotFound = errors.New("work unit not found")
	// ErrInvalidTransition marks operations that do not match the unit's
	// current stage and state. Retrying with the same arguments cannot help.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrForbidden marks policy violations: caller identity does not match
	// the operator or reviewer of record, a role check failed, or a reviewer
	// attempted to review their own production.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a conditional update that lost a race. Absorbed by
	// claim retry loops; surfaced as ErrNoneAvailable once retries exhaust.
	ErrConflict = errors.New("claim conflict")
	// ErrNoneAvailable reports that no claimable batch remains.
	ErrNoneAvailable = errors.New("no batch available")
	// ErrAlreadyHasActiveBatch reports a second concurrent production claim
	// by a worker who already holds one.
	ErrAlreadyHasActiveBatch = errors.New("worker already holds an active batch")
	// ErrNotFullyPending reports a manual assignment against a batch with at
	// least one block off pending. No partial effect occurs.
	ErrNotFullyPending = errors.New("batch is not fully pending")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided sentinel for classification via errors.Is.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrInvalidTransition
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
