package store

import "github.com/caravel-design/docengine/internal/docmodel"

// MutationEvent is the record returned to the caller for every successful
// mutation. It is distinct from the Event envelope emitted to listeners. The
// store does not keep a list of MutationEvents; the only history it retains
// is the undo/redo snapshots, each tagged with its mutation's id.
type MutationEvent struct {
	MutationID   string
	Type         string // "property-change" | "batch"
	NodeID       string
	DocumentHash string
	DurationMs   int64
}

// snapshot is one entry on the undo/redo deque: an immutable deep copy of a
// document plus the mutation that produced it, so undo can report which
// mutation it is reverting.
type snapshot struct {
	doc        *docmodel.Document
	mutationID string
}
