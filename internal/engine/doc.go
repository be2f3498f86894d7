// Package engine implements the work-unit lifecycle: production claiming,
// worker-driven progress, and quality control review.
//
// Three engines share one storage contract and one error taxonomy. The
// Assignment engine moves whole pending batches under a single operator, the
// Progress engine advances individual blocks through the production stage,
// and the QualityControl engine moves finished or corrected batches through
// review. Correctness under concurrent callers rests entirely on the store's
// conditional-update primitives: every transition is a compare-and-swap on
// the unit's current state, so claim races resolve to a bounded retry and
// never to double ownership.
//
// Every successful transition appends exactly one history event.
package engine
