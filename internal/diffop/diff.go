// Package diffop implements the semantic-diff half of C5: comparing two
// document versions field-by-field, pairing nodes by id, per spec §4.5.1.
package diffop

import (
	"context"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/index"
)

type OpKind string

const (
	OpAdd    OpKind = "add"
	OpRemove OpKind = "remove"
	OpMove   OpKind = "move"
	OpModify OpKind = "modify"
)

// fixed field order used both for modify emission and as a stable tiebreak
// when several fields on the same node change at once.
var fieldOrder = []string{
	"name", "visible",
	"frame.x", "frame.y", "frame.width", "frame.height",
	"layout", "style",
	"text", "textStyle", "componentKey", "props",
}

// Operation is one unit of change between a "from" and a "to" document.
type Operation struct {
	Kind   OpKind
	NodeID string

	// IsArtboard is true when NodeID names an artboard rather than a scene
	// node — artboards share the node id namespace (spec §3 invariant 1)
	// but live in doc.Artboards rather than under a parent's children.
	IsArtboard bool

	Path     string // current/target JSON pointer path of the entry
	FromPath string // move only: the entry's path in "from"
	ParentID string // add/move only: the id of the new parent (artboard or frame node)
	Depth    int    // depth in its own tree, used to order remove/add

	Field    string // modify only, one of fieldOrder
	OldValue any
	NewValue any
}

// Options mirrors spec §4.5.1's knobs.
type Options struct {
	IncludeStructural bool
	IncludeProperty   bool
	IncludeContent    bool
	IncludeMetadata   bool
	MaxOperations     int // 0 means unbounded

	// ParallelArtboards fans the per-id move/field comparison pass out one
	// goroutine per artboard via errgroup, bounded by GOMAXPROCS. Worth
	// enabling only on documents with several large, independent artboards;
	// the per-id loop itself is cheap enough that small documents don't
	// benefit from the goroutine overhead.
	ParallelArtboards bool
}

func DefaultOptions() Options {
	return Options{IncludeStructural: true, IncludeProperty: true, IncludeContent: true, IncludeMetadata: true}
}

type Summary struct {
	Added    int
	Removed  int
	Moved    int
	Modified int
	Total    int
}

func Summarize(ops []Operation) Summary {
	s := Summary{}
	for _, op := range ops {
		switch op.Kind {
		case OpAdd:
			s.Added++
		case OpRemove:
			s.Removed++
		case OpMove:
			s.Moved++
		case OpModify:
			s.Modified++
		}
	}
	s.Total = len(ops)
	return s
}

type Metadata struct {
	FromDocumentID string
	ToDocumentID   string
	Timestamp      time.Time
	Duration       time.Duration
}

type Result struct {
	Operations []Operation
	Summary    Summary
	Metadata   Metadata
}

// Diff compares from and to, pairing entries by id (spec §3 invariant: ids
// are stable and unique across the whole document, artboards included).
func Diff(from, to *docmodel.Document, opts Options) Result {
	start := time.Now()

	fromEntries := collect(from)
	toEntries := collect(to)

	var ops []Operation

	if opts.IncludeStructural {
		for id, fe := range fromEntries {
			if _, ok := toEntries[id]; !ok {
				ops = append(ops, Operation{Kind: OpRemove, NodeID: id, IsArtboard: fe.Kind == index.EntryArtboard, Path: fe.Path, Depth: fe.Depth})
			}
		}
		for id, te := range toEntries {
			if _, ok := fromEntries[id]; !ok {
				ops = append(ops, Operation{Kind: OpAdd, NodeID: id, IsArtboard: te.Kind == index.EntryArtboard, Path: te.Path, ParentID: te.ParentID, Depth: te.Depth})
			}
		}
	}

	if opts.ParallelArtboards {
		ops = append(ops, diffCommonParallel(fromEntries, toEntries, opts)...)
	} else {
		for id, fe := range fromEntries {
			te, ok := toEntries[id]
			if !ok {
				continue
			}
			ops = append(ops, diffOne(id, fe, te, opts)...)
		}
	}

	ops = OrderOperations(ops)
	if opts.MaxOperations > 0 && len(ops) > opts.MaxOperations {
		ops = ops[:opts.MaxOperations]
	}

	return Result{
		Operations: ops,
		Summary:    Summarize(ops),
		Metadata: Metadata{
			FromDocumentID: docID(from),
			ToDocumentID:   docID(to),
			Timestamp:      start,
			Duration:       time.Since(start),
		},
	}
}

// diffOne compares one id present in both from and to: a structural move (if
// its parent or sibling position changed) plus every field-level modify.
func diffOne(id string, fe, te index.Entry, opts Options) []Operation {
	var ops []Operation
	if opts.IncludeStructural && fe.Kind == index.EntryNode && te.Kind == index.EntryNode {
		if fe.ParentID != te.ParentID || siblingIndex(fe.Path) != siblingIndex(te.Path) {
			ops = append(ops, Operation{Kind: OpMove, NodeID: id, FromPath: fe.Path, Path: te.Path, ParentID: te.ParentID, Depth: te.Depth})
		}
	}
	return append(ops, diffFields(fe, te, opts)...)
}

// diffCommonParallel runs diffOne over every id common to fromEntries and
// toEntries, one goroutine per artboard, via errgroup. Grouping by artboard
// rather than sharding the id list arbitrarily keeps each goroutine's slice
// of ops independent (no cross-goroutine append), so no mutex is needed —
// results are collected into per-artboard slots and flattened after Wait.
func diffCommonParallel(fromEntries, toEntries map[string]index.Entry, opts Options) []Operation {
	groups := make(map[string][]string)
	for id, fe := range fromEntries {
		if _, ok := toEntries[id]; !ok {
			continue
		}
		groups[fe.ArtboardID] = append(groups[fe.ArtboardID], id)
	}

	artboardIDs := make([]string, 0, len(groups))
	for abID := range groups {
		artboardIDs = append(artboardIDs, abID)
	}

	results := make([][]Operation, len(artboardIDs))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, abID := range artboardIDs {
		i, ids := i, groups[abID]
		g.Go(func() error {
			var out []Operation
			for _, id := range ids {
				out = append(out, diffOne(id, fromEntries[id], toEntries[id], opts)...)
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait() // diffOne never errors; Wait only joins the goroutines

	var ops []Operation
	for _, r := range results {
		ops = append(ops, r...)
	}
	return ops
}

func docID(d *docmodel.Document) string {
	if d == nil {
		return ""
	}
	return d.ID
}

func collect(doc *docmodel.Document) map[string]index.Entry {
	out := make(map[string]index.Entry)
	for e := range index.Iter(doc) {
		out[e.ID] = e
	}
	return out
}

func siblingIndex(path string) int {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(path[i+1:])
	if err != nil {
		return -1
	}
	return n
}

func diffFields(fe, te index.Entry, opts Options) []Operation {
	var ops []Operation
	add := func(field string, oldV, newV any) {
		ops = append(ops, Operation{Kind: OpModify, NodeID: te.ID, IsArtboard: te.Kind == index.EntryArtboard, Path: te.Path, Field: field, OldValue: oldV, NewValue: newV})
	}

	var fName, tName string
	var fFrame, tFrame docmodel.Rect
	if fe.Kind == index.EntryArtboard {
		fName, tName = fe.Artboard.Name, te.Artboard.Name
		fFrame, tFrame = fe.Artboard.Frame, te.Artboard.Frame
	} else {
		fName, tName = fe.Node.Name, te.Node.Name
		fFrame, tFrame = fe.Node.Frame, te.Node.Frame
	}

	if opts.IncludeMetadata && fName != tName {
		add("name", fName, tName)
	}

	if opts.IncludeProperty {
		if fe.Kind == index.EntryNode && te.Kind == index.EntryNode && fe.Node.Visible != te.Node.Visible {
			add("visible", fe.Node.Visible, te.Node.Visible)
		}
		if fFrame.X != tFrame.X {
			add("frame.x", fFrame.X, tFrame.X)
		}
		if fFrame.Y != tFrame.Y {
			add("frame.y", fFrame.Y, tFrame.Y)
		}
		if fFrame.Width != tFrame.Width {
			add("frame.width", fFrame.Width, tFrame.Width)
		}
		if fFrame.Height != tFrame.Height {
			add("frame.height", fFrame.Height, tFrame.Height)
		}
		if fe.Kind == index.EntryNode && te.Kind == index.EntryNode {
			if !LayoutsEqual(fe.Node.Layout, te.Node.Layout) {
				add("layout", fe.Node.Layout, te.Node.Layout)
			}
			if !StylesEqual(fe.Node.Style, te.Node.Style) {
				add("style", fe.Node.Style, te.Node.Style)
			}
		}
	}

	if opts.IncludeContent && fe.Kind == index.EntryNode && te.Kind == index.EntryNode {
		if fe.Node.Kind == docmodel.KindText && te.Node.Kind == docmodel.KindText {
			if fe.Node.Text != te.Node.Text {
				add("text", fe.Node.Text, te.Node.Text)
			}
			if !TextStylesEqual(fe.Node.TextStyle, te.Node.TextStyle) {
				add("textStyle", fe.Node.TextStyle, te.Node.TextStyle)
			}
		}
		if fe.Node.Kind == docmodel.KindComponent && te.Node.Kind == docmodel.KindComponent {
			if fe.Node.ComponentKey != te.Node.ComponentKey {
				add("componentKey", fe.Node.ComponentKey, te.Node.ComponentKey)
			}
			if !PropsEqual(fe.Node.Props, te.Node.Props) {
				add("props", fe.Node.Props, te.Node.Props)
			}
		}
	}

	return ops
}

// OrderOperations applies spec §4.5.1's ordering contract: remove (deepest
// first), then add (shallowest first), then move (by source path), then
// modify (by target path); ties broken by node id.
func OrderOperations(ops []Operation) []Operation {
	var removes, adds, moves, modifies []Operation
	for _, op := range ops {
		switch op.Kind {
		case OpRemove:
			removes = append(removes, op)
		case OpAdd:
			adds = append(adds, op)
		case OpMove:
			moves = append(moves, op)
		case OpModify:
			modifies = append(modifies, op)
		}
	}
	sort.SliceStable(removes, func(i, j int) bool {
		if removes[i].Depth != removes[j].Depth {
			return removes[i].Depth > removes[j].Depth
		}
		return removes[i].NodeID < removes[j].NodeID
	})
	sort.SliceStable(adds, func(i, j int) bool {
		if adds[i].Depth != adds[j].Depth {
			return adds[i].Depth < adds[j].Depth
		}
		return adds[i].NodeID < adds[j].NodeID
	})
	sort.SliceStable(moves, func(i, j int) bool {
		if moves[i].FromPath != moves[j].FromPath {
			return moves[i].FromPath < moves[j].FromPath
		}
		return moves[i].NodeID < moves[j].NodeID
	})
	sort.SliceStable(modifies, func(i, j int) bool {
		if modifies[i].Path != modifies[j].Path {
			return modifies[i].Path < modifies[j].Path
		}
		return modifies[i].NodeID < modifies[j].NodeID
	})

	out := make([]Operation, 0, len(ops))
	out = append(out, removes...)
	out = append(out, adds...)
	out = append(out, moves...)
	out = append(out, modifies...)
	return out
}

func fieldRank(field string) int {
	for i, f := range fieldOrder {
		if f == field {
			return i
		}
	}
	return len(fieldOrder)
}
