// Package index implements C2: pre-order traversal over a Document plus an
// O(1) node/artboard lookup side-table. Build constructs the table eagerly in
// one full traversal; it is not built lazily on first query. Holders rebuild
// it whenever the document is replaced (never incrementally maintained under patches —
// see spec §9 Design Notes, "the simplicity is worth more than the savings
// given realistic document sizes").
package index

import (
	"iter"
	"regexp"
	"strconv"

	"github.com/caravel-design/docengine/internal/docmodel"
)

// EntryKind distinguishes an artboard-level entry from a node entry inside
// one. Ids share a single namespace (§3 invariant 1) so both kinds live in
// the same index.
type EntryKind string

const (
	EntryArtboard EntryKind = "artboard"
	EntryNode     EntryKind = "node"
)

// Entry is one position in the pre-order traversal: an artboard itself, or
// one of the nodes nested under it.
type Entry struct {
	Kind EntryKind

	ID   string
	Name string

	Artboard *docmodel.Artboard // set only when Kind == EntryArtboard
	Node     *docmodel.Node     // set only when Kind == EntryNode

	Path          string
	ArtboardIndex int
	ArtboardID    string
	ParentID      string // empty for artboard-level entries
	Depth         int
}

// Options filters IterFiltered. MaxDepth < 0 means unlimited. ArtboardIndex
// < 0 means every artboard.
type Options struct {
	MaxDepth         int
	IncludeInvisible bool
	ArtboardIndex    int
	Predicate        func(Entry) bool
}

func DefaultOptions() Options {
	return Options{MaxDepth: -1, IncludeInvisible: true, ArtboardIndex: -1}
}

// Iter returns the full pre-order sequence: each artboard, then its children
// depth-first, left-to-right. The sequence is finite, restartable (each call
// to the returned iter.Seq starts over), and is a pure function of document
// content.
func Iter(doc *docmodel.Document) iter.Seq[Entry] {
	return IterFiltered(doc, DefaultOptions())
}

// IterFiltered applies Options while walking in the same deterministic
// pre-order.
func IterFiltered(doc *docmodel.Document, opts Options) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if doc == nil {
			return
		}
		for ai, ab := range doc.Artboards {
			if ab == nil {
				continue
			}
			if opts.ArtboardIndex >= 0 && ai != opts.ArtboardIndex {
				continue
			}
			abEntry := Entry{
				Kind:          EntryArtboard,
				ID:            ab.ID,
				Name:          ab.Name,
				Artboard:      ab,
				Path:          "/artboards/" + strconv.Itoa(ai),
				ArtboardIndex: ai,
				ArtboardID:    ab.ID,
				Depth:         0,
			}
			if passes(abEntry, opts) {
				if !yield(abEntry) {
					return
				}
			}
			if !walkChildren(ab.Children, ab.ID, ai, abEntry.Path+"/children", ab.ID, 1, opts, yield) {
				return
			}
		}
	}
}

func walkChildren(children []*docmodel.Node, artboardID string, artboardIndex int, pathPrefix, parentID string, depth int, opts Options, yield func(Entry) bool) bool {
	if opts.MaxDepth >= 0 && depth > opts.MaxDepth {
		return true
	}
	for i, n := range children {
		if n == nil {
			continue
		}
		path := pathPrefix + "/" + strconv.Itoa(i)
		entry := Entry{
			Kind:          EntryNode,
			ID:            n.ID,
			Name:          n.Name,
			Node:          n,
			Path:          path,
			ArtboardIndex: artboardIndex,
			ArtboardID:    artboardID,
			ParentID:      parentID,
			Depth:         depth,
		}
		if passes(entry, opts) {
			if !yield(entry) {
				return false
			}
		}
		if n.Kind == docmodel.KindFrame {
			if !walkChildren(n.Children, artboardID, artboardIndex, path+"/children", n.ID, depth+1, opts, yield) {
				return false
			}
		}
	}
	return true
}

func passes(e Entry, opts Options) bool {
	if !opts.IncludeInvisible && e.Kind == EntryNode && !e.Node.Visible {
		return false
	}
	if opts.Predicate != nil && !opts.Predicate(e) {
		return false
	}
	return true
}

// Index is the O(1) id -> Entry side-table. Build it once per document
// instance; rebuild it (call Build again) whenever the document is replaced.
type Index struct {
	byID map[string]Entry
}

// Build performs one O(N) traversal and returns the lookup side-table.
func Build(doc *docmodel.Document) *Index {
	idx := &Index{byID: make(map[string]Entry)}
	for e := range Iter(doc) {
		idx.byID[e.ID] = e
	}
	return idx
}

// FindByID is O(1). Absent is reported via the boolean, never an error.
func (idx *Index) FindByID(id string) (Entry, bool) {
	if idx == nil {
		return Entry{}, false
	}
	e, ok := idx.byID[id]
	return e, ok
}

// FindByIDs resolves a batch of ids in O(k) once the index is built.
func (idx *Index) FindByIDs(ids []string) map[string]Entry {
	out := make(map[string]Entry, len(ids))
	if idx == nil {
		return out
	}
	for _, id := range ids {
		if e, ok := idx.byID[id]; ok {
			out[id] = e
		}
	}
	return out
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byID)
}

// FindByIDs performs a single traversal of doc, stopping as soon as every
// requested id has been found — O(N) in document size, not O(N*|ids|), for
// callers who want a handful of ids without paying to build a full Index
// first.
func FindByIDs(doc *docmodel.Document, ids []string) map[string]Entry {
	out := make(map[string]Entry, len(ids))
	if len(ids) == 0 {
		return out
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for e := range Iter(doc) {
		if want[e.ID] {
			out[e.ID] = e
			delete(want, e.ID)
			if len(want) == 0 {
				break
			}
		}
	}
	return out
}

// FindByType returns every node entry whose Kind matches typeTag.
func FindByType(doc *docmodel.Document, typeTag docmodel.Kind) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := range Iter(doc) {
			if e.Kind == EntryNode && e.Node.Kind == typeTag {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// FindByName returns every entry (artboard or node) whose Name matches re.
func FindByName(doc *docmodel.Document, re *regexp.Regexp) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := range Iter(doc) {
			if re.MatchString(e.Name) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Ancestors returns the chain of entries from the root artboard down to (but
// not including) the entry at path, ordered outermost-first.
func Ancestors(doc *docmodel.Document, path string) []Entry {
	idx := Build(doc)
	target, ok := findByPath(idx, path)
	if !ok {
		return nil
	}
	var chain []Entry
	cur := target
	for cur.Kind == EntryNode {
		parent, ok := idx.FindByID(cur.ParentID)
		if !ok {
			break
		}
		chain = append([]Entry{parent}, chain...)
		cur = parent
	}
	return chain
}

// Descendants returns the pre-order sequence of entries nested under path,
// excluding the entry at path itself.
func Descendants(doc *docmodel.Document, path string) []Entry {
	idx := Build(doc)
	target, ok := findByPath(idx, path)
	if !ok || target.Kind != EntryNode || target.Node.Kind != docmodel.KindFrame {
		return nil
	}
	var out []Entry
	for e := range Iter(doc) {
		if e.ArtboardIndex == target.ArtboardIndex && e.Depth > target.Depth && isDescendantPath(e.Path, target.Path) {
			out = append(out, e)
		}
	}
	return out
}

func isDescendantPath(path, ancestorPath string) bool {
	if len(path) <= len(ancestorPath) {
		return false
	}
	return path[:len(ancestorPath)] == ancestorPath && path[len(ancestorPath)] == '/'
}

func findByPath(idx *Index, path string) (Entry, bool) {
	for _, e := range idx.byID {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Stats summarizes document shape.
type Stats struct {
	TotalNodes    int
	ArtboardCount int
	MaxDepth      int
	CountsByType  map[docmodel.Kind]int
}

func ComputeStats(doc *docmodel.Document) Stats {
	s := Stats{CountsByType: make(map[docmodel.Kind]int)}
	if doc == nil {
		return s
	}
	s.ArtboardCount = len(doc.Artboards)
	for e := range Iter(doc) {
		if e.Kind != EntryNode {
			continue
		}
		s.TotalNodes++
		s.CountsByType[e.Node.Kind]++
		if e.Depth > s.MaxDepth {
			s.MaxDepth = e.Depth
		}
	}
	return s
}

// CountNodes is the total number of scene nodes (artboards excluded).
func CountNodes(doc *docmodel.Document) int {
	n := 0
	for e := range Iter(doc) {
		if e.Kind == EntryNode {
			n++
		}
	}
	return n
}
