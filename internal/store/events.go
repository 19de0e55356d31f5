package store

// EventType names the events a Store emits synchronously to its listeners,
// matching spec §6's event surface.
type EventType string

const (
	EventDocumentLoaded EventType = "document-loaded"
	EventMutationApplied EventType = "mutation-applied"
	EventDocumentSaved  EventType = "document-saved"
	EventUndo           EventType = "undo"
	EventRedo           EventType = "redo"
)

// Event is the single envelope delivered to every listener. Only the fields
// relevant to Type are populated; the rest are zero values.
type Event struct {
	Type EventType

	// document-loaded
	DocID     string
	NodeCount int

	// mutation-applied
	MutationID   string
	MutationType string
	NodeID       string
	DurationMs   int64
	DocumentHash string

	// document-saved
	Path string

	// undo / redo
	SnapshotID string
}

// Listener receives every Event a Store emits. Delivery is synchronous: the
// call that produced the event does not return until every listener has.
type Listener func(Event)
