// Package store implements C4, the Document Store: the single owner of the
// current document, the undo/redo history, and the synchronous event feed
// described in spec §4.4 and §6.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/caravel-design/docengine/internal/docerr"
	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/index"
	"github.com/caravel-design/docengine/internal/patch"
	"github.com/caravel-design/docengine/internal/platform/logger"
)

const DefaultMaxUndoDepth = 200

// State is the store's lifecycle position, per spec §4.4's state machine:
// Empty -> Loaded -> Loaded' -> ... -> Loaded* -> Empty.
type State string

const (
	StateEmpty  State = "empty"
	StateLoaded State = "loaded"
)

// Store owns exactly one current document. It is not safe for concurrent
// use from multiple goroutines: callers wanting parallelism hold their own
// Store per thread of execution (spec §5).
type Store struct {
	log    *logger.Logger
	tracer trace.Tracer

	state State
	doc   *docmodel.Document
	idx   *index.Index

	persistencePath string

	undoStack    []snapshot
	redoStack    []snapshot
	maxUndoDepth int

	listeners []Listener
}

// Option configures a new Store.
type Option func(*Store)

func WithMaxUndoDepth(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxUndoDepth = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithTracer injects the trace.Tracer that Load, ApplyPropertyChange,
// ApplyBatch, Undo, Redo, and Save wrap their work in. Omitting it falls
// back to the global otel tracer provider, which is a no-op until the host
// application configures one — the store never initializes tracing itself.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

func New(opts ...Option) *Store {
	s := &Store{
		state:        StateEmpty,
		maxUndoDepth: DefaultMaxUndoDepth,
		log:          logger.Noop(),
		tracer:       otel.Tracer("github.com/caravel-design/docengine/internal/store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener for every Event the store emits. It
// returns an unsubscribe function.
func (s *Store) Subscribe(l Listener) func() {
	s.listeners = append(s.listeners, l)
	idx := len(s.listeners) - 1
	return func() {
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// startSpan opens a span for a synchronous store operation. The store's
// public methods are not ctx-threaded (spec §5 treats it as single-threaded,
// callback-driven), so spans are rooted from a fresh background context —
// callers that need a parent span should use WithTracer with a provider that
// correlates by other means (request id in an attribute, not span linkage).
func (s *Store) startSpan(name string) (context.Context, trace.Span) {
	return s.tracer.Start(context.Background(), name)
}

func endSpan(span trace.Span, serr *docerr.StoreError) {
	if serr != nil {
		span.SetStatus(codes.Error, serr.Error())
		span.RecordError(serr)
	}
	span.End()
}

func (s *Store) emit(e Event) {
	for _, l := range s.listeners {
		if l != nil {
			l(e)
		}
	}
}

func (s *Store) Document() *docmodel.Document {
	if s.doc == nil {
		return nil
	}
	return s.doc.Clone()
}

func (s *Store) State() State { return s.state }

func (s *Store) Index() *index.Index { return s.idx }

// Load replaces the current document, clears history, rebuilds the index,
// and emits document-loaded. path, when non-empty, becomes the persistence
// path used by Save.
func (s *Store) Load(doc *docmodel.Document, path string) *docerr.StoreError {
	_, span := s.startSpan("store.Load")
	var serr *docerr.StoreError
	defer func() { endSpan(span, serr) }()

	if errs := docmodel.Validate(doc); len(errs) > 0 {
		serr = docerr.WrapStoreError(docerr.StorePatchFailed, "load rejected invalid document", errs[0])
		return serr
	}

	s.doc = doc.Clone()
	s.idx = index.Build(s.doc)
	s.persistencePath = path
	s.undoStack = nil
	s.redoStack = nil
	s.state = StateLoaded

	s.log.Info("document loaded", "docId", s.doc.ID, "nodeCount", index.CountNodes(s.doc))
	s.emit(Event{Type: EventDocumentLoaded, DocID: s.doc.ID, NodeCount: index.CountNodes(s.doc)})
	return nil
}

// Unload returns the store to the Empty state, discarding the document and
// all history.
func (s *Store) Unload() {
	s.doc = nil
	s.idx = nil
	s.undoStack = nil
	s.redoStack = nil
	s.state = StateEmpty
}

func documentHash(doc *docmodel.Document) (string, error) {
	raw, err := docmodel.Canonicalize(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// ApplyPropertyChange constructs a replace patch at the node's resolved
// path plus "/"+propertyKey, delegates to the patch engine, and on success
// records history and emits mutation-applied. If oldValue is non-nil, the
// current value at that path must match it or the mutation is rejected as
// a stale write (reported as patch-failed) without touching the document.
func (s *Store) ApplyPropertyChange(nodeID, propertyKey string, newValue, oldValue any) (me MutationEvent, serr *docerr.StoreError) {
	_, span := s.startSpan("store.ApplyPropertyChange")
	defer func() { endSpan(span, serr) }()

	start := time.Now()
	if s.state != StateLoaded {
		return MutationEvent{}, docerr.NewStoreError(docerr.StoreNoDocumentLoaded, "", "no document loaded")
	}

	entry, ok := s.idx.FindByID(nodeID)
	if !ok || entry.Kind != index.EntryNode {
		return MutationEvent{}, docerr.NewStoreError(docerr.StoreNodeNotFound, nodeID, "node id does not resolve")
	}

	path := entry.Path + "/" + propertyKey
	if oldValue != nil {
		current, _ := patch.ReadValue(s.doc, path)
		if !patch.ValuesEqual(current, oldValue) {
			return MutationEvent{}, docerr.NewStoreError(docerr.StorePatchFailed, nodeID, "stale write: current value does not match oldValue")
		}
	}

	return s.commit("property-change", nodeID, patch.Replace(path, newValue), start)
}

// ApplyBatch folds a sequence of patches left to right. On the first
// failure the document is unchanged and the error reports the offending
// index; on success exactly one MutationEvent is recorded for the whole
// batch, making it atomic with respect to history.
func (s *Store) ApplyBatch(patches []patch.Patch) (me MutationEvent, failedAt int, serr *docerr.StoreError) {
	_, span := s.startSpan("store.ApplyBatch")
	defer func() { endSpan(span, serr) }()

	start := time.Now()
	if s.state != StateLoaded {
		return MutationEvent{}, -1, docerr.NewStoreError(docerr.StoreNoDocumentLoaded, "", "no document loaded")
	}

	working := s.doc
	for i, p := range patches {
		next, perr := patch.Apply(working, p)
		if perr != nil {
			return MutationEvent{}, i, docerr.WrapStoreError(docerr.StorePatchFailed, "batch failed at index", perr)
		}
		working = next
	}

	prev := s.doc
	hash, herr := documentHash(prev)
	if herr != nil {
		return MutationEvent{}, -1, docerr.NewStoreError(docerr.StorePatchFailed, "", herr.Error())
	}

	mutationID := uuid.New().String()
	s.pushUndo(prev, mutationID)
	s.doc = working
	s.idx = index.Build(s.doc)

	me = MutationEvent{
		MutationID:   mutationID,
		Type:         "batch",
		DocumentHash: hash,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	s.log.Debug("batch applied", "mutationId", me.MutationID, "count", len(patches))
	s.emit(Event{
		Type: EventMutationApplied, MutationID: me.MutationID, MutationType: me.Type,
		DurationMs: me.DurationMs, DocumentHash: me.DocumentHash,
	})
	return me, -1, nil
}

func (s *Store) commit(kind, nodeID string, p patch.Patch, start time.Time) (MutationEvent, *docerr.StoreError) {
	next, perr := patch.Apply(s.doc, p)
	if perr != nil {
		return MutationEvent{}, docerr.WrapStoreError(docerr.StorePatchFailed, "mutation rejected", perr)
	}

	prev := s.doc
	hash, herr := documentHash(prev)
	if herr != nil {
		return MutationEvent{}, docerr.NewStoreError(docerr.StorePatchFailed, nodeID, herr.Error())
	}

	mutationID := uuid.New().String()
	s.pushUndo(prev, mutationID)
	s.doc = next
	s.idx = index.Build(s.doc)

	me := MutationEvent{
		MutationID:   mutationID,
		Type:         kind,
		NodeID:       nodeID,
		DocumentHash: hash,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	s.log.Debug("mutation applied", "mutationId", me.MutationID, "type", kind, "nodeId", nodeID)
	s.emit(Event{
		Type: EventMutationApplied, MutationID: me.MutationID, MutationType: me.Type,
		NodeID: me.NodeID, DurationMs: me.DurationMs, DocumentHash: me.DocumentHash,
	})
	return me, nil
}

// pushUndo records prev (the document as it was before the mutation that is
// about to commit) and clears the redo stack, per spec §4.4.
func (s *Store) pushUndo(prev *docmodel.Document, mutationID string) {
	s.undoStack = append(s.undoStack, snapshot{doc: prev.Clone(), mutationID: mutationID})
	if len(s.undoStack) > s.maxUndoDepth {
		s.undoStack = s.undoStack[len(s.undoStack)-s.maxUndoDepth:]
	}
	s.redoStack = nil
}

// Undo pops the most recent snapshot off the undo stack, pushes the current
// document onto the redo stack, and makes the popped snapshot current.
func (s *Store) Undo() (serr *docerr.StoreError) {
	_, span := s.startSpan("store.Undo")
	defer func() { endSpan(span, serr) }()

	if s.state != StateLoaded {
		return docerr.NewStoreError(docerr.StoreNoDocumentLoaded, "", "no document loaded")
	}
	if len(s.undoStack) == 0 {
		return docerr.NewStoreError(docerr.StoreNothingToUndo, "", "undo stack is empty")
	}
	top := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]

	s.redoStack = append(s.redoStack, snapshot{doc: s.doc.Clone(), mutationID: top.mutationID})

	s.doc = top.doc
	s.idx = index.Build(s.doc)
	s.log.Debug("undo", "snapshotId", top.mutationID)
	s.emit(Event{Type: EventUndo, SnapshotID: top.mutationID})
	return nil
}

// Redo is the inverse of Undo.
func (s *Store) Redo() (serr *docerr.StoreError) {
	_, span := s.startSpan("store.Redo")
	defer func() { endSpan(span, serr) }()

	if s.state != StateLoaded {
		return docerr.NewStoreError(docerr.StoreNoDocumentLoaded, "", "no document loaded")
	}
	if len(s.redoStack) == 0 {
		return docerr.NewStoreError(docerr.StoreNothingToRedo, "", "redo stack is empty")
	}
	top := s.redoStack[len(s.redoStack)-1]
	s.redoStack = s.redoStack[:len(s.redoStack)-1]

	s.undoStack = append(s.undoStack, snapshot{doc: s.doc.Clone(), mutationID: top.mutationID})

	s.doc = top.doc
	s.idx = index.Build(s.doc)
	s.log.Debug("redo", "snapshotId", top.mutationID)
	s.emit(Event{Type: EventRedo, SnapshotID: top.mutationID})
	return nil
}

// Save writes canonicalize(current) to the persistence path. It fails with
// no-persistence-path if Load was never given one.
func (s *Store) Save() (serr *docerr.StoreError) {
	_, span := s.startSpan("store.Save")
	defer func() { endSpan(span, serr) }()

	if s.state != StateLoaded {
		return docerr.NewStoreError(docerr.StoreNoDocumentLoaded, "", "no document loaded")
	}
	if s.persistencePath == "" {
		return docerr.NewStoreError(docerr.StoreNoPersistencePath, "", "store has no persistence path")
	}
	raw, err := docmodel.Canonicalize(s.doc)
	if err != nil {
		return docerr.NewStoreError(docerr.StorePatchFailed, "", err.Error())
	}
	if err := os.WriteFile(s.persistencePath, raw, 0o644); err != nil {
		return docerr.NewStoreError(docerr.StorePatchFailed, s.persistencePath, err.Error())
	}
	s.log.Info("document saved", "path", s.persistencePath, "nodeCount", index.CountNodes(s.doc))
	s.emit(Event{Type: EventDocumentSaved, Path: s.persistencePath, NodeCount: index.CountNodes(s.doc)})
	return nil
}
