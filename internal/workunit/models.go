package workunit

import (
	"fmt"
	"strings"
	"time"
)

// Stage identifies which half of the pipeline currently owns a block.
type Stage string

const (
	StageProduction     Stage = "production"
	StageQualityControl Stage = "quality_control"
)

// State represents the lifecycle position of a work unit.
type State string

const (
	StatePending    State = "pending"
	StateAssigned   State = "assigned"
	StateInProgress State = "in_progress"
	StateDone       State = "done"
	StateQCPending  State = "qc_pending"
	StateApproved   State = "approved"
	StateRejected   State = "rejected"
	StateCorrected  State = "corrected"
)

var allStates = []State{
	StatePending,
	StateAssigned,
	StateInProgress,
	StateDone,
	StateQCPending,
	StateApproved,
	StateRejected,
	StateCorrected,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// activeProductionStates are the states in which a block counts against the
// one-active-batch-per-operator rule.
var activeProductionStates = []State{
	StateAssigned,
	StateInProgress,
	StateRejected,
	StateCorrected,
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ActiveProductionStates returns the states that hold an operator's claim.
func ActiveProductionStates() []State {
	cp := make([]State, len(activeProductionStates))
	copy(cp, activeProductionStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateApproved
}

// Key uniquely identifies a work unit.
type Key struct {
	Region string
	Batch  string
	Block  int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Region, k.Batch, k.Block)
}

// WorkUnit is one block of survey work as persisted in SQLite.
type WorkUnit struct {
	Key          Key
	Complexity   string
	Stage        Stage
	State        State
	Operator     string
	Reviewer     string
	RejectCount  int
	ApproveCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StateLabel renders the state for display and audit records. Rejected units
// carry their rejection ordinal, e.g. "rejected(2)".
func (u WorkUnit) StateLabel() string {
	if u.State == StateRejected && u.RejectCount > 0 {
		return fmt.Sprintf("%s(%d)", StateRejected, u.RejectCount)
	}
	return string(u.State)
}

// ActiveProduction reports whether the unit currently holds its operator's
// production claim.
func (u WorkUnit) ActiveProduction() bool {
	switch u.State {
	case StateAssigned, StateInProgress, StateRejected, StateCorrected:
		return true
	default:
		return false
	}
}

// BatchSummary aggregates per-batch counts for status reporting.
type BatchSummary struct {
	Region string
	Batch  string
	Blocks int
	States map[State]int
}
