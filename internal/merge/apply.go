package merge

import (
	"context"
	"encoding/json"

	"github.com/caravel-design/docengine/internal/diffop"
	"github.com/caravel-design/docengine/internal/docerr"
	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/index"
	"github.com/caravel-design/docengine/internal/patch"
)

// blockedSet records which operations the non-conflict pass must skip
// because a conflict already claims that id, field, or parent group.
// Existence-level conflicts (S-DEL-MOD, S-ADD-ADD, S-MOVE-MOVE) block every
// operation touching the id; field-level conflicts block only that field;
// S-ORDER blocks move application for that parent's children, leaving other
// property changes on the same ids untouched.
type blockedSet struct {
	existence    map[string]bool
	fields       map[string]map[string]bool
	orderParents map[string]bool
}

func computeBlocked(conflicts []Conflict) blockedSet {
	b := blockedSet{existence: map[string]bool{}, fields: map[string]map[string]bool{}, orderParents: map[string]bool{}}
	for _, c := range conflicts {
		switch c.Code {
		case CodeSDelMod, CodeSAddAdd, CodeSMoveMove:
			b.existence[c.NodeID] = true
		case CodeSOrder:
			b.orderParents[c.ParentID] = true
		default:
			if b.fields[c.NodeID] == nil {
				b.fields[c.NodeID] = map[string]bool{}
			}
			b.fields[c.NodeID][c.Field] = true
		}
	}
	return b
}

func filterBlockedOps(ops []diffop.Operation, b blockedSet) []diffop.Operation {
	out := make([]diffop.Operation, 0, len(ops))
	for _, op := range ops {
		if b.existence[op.NodeID] {
			continue
		}
		if op.Kind == diffop.OpModify && b.fields[op.NodeID][op.Field] {
			continue
		}
		if op.Kind == diffop.OpMove && b.orderParents[op.ParentID] {
			continue
		}
		out = append(out, op)
	}
	return out
}

// dedupeOps keeps only the first operation per (kind, id, field) key so that
// a non-conflicting change present identically in both deltaLocal and
// deltaRemote is applied once rather than twice.
func dedupeOps(ops []diffop.Operation) []diffop.Operation {
	seen := make(map[string]bool, len(ops))
	out := make([]diffop.Operation, 0, len(ops))
	for _, op := range ops {
		key := string(op.Kind) + "|" + op.NodeID + "|" + op.Field
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, op)
	}
	return out
}

func checkCancelled(ctx context.Context, visits, yieldEvery int) *docerr.MergeError {
	if yieldEvery <= 0 {
		yieldEvery = 1000
	}
	if visits%yieldEvery != 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return docerr.NewMergeError(docerr.MergeCancelled, "", ctx.Err().Error())
	default:
		return nil
	}
}

// buildResolvedDocument starts from base, applies every non-conflicting
// operation from deltaLocal and deltaRemote, then applies every conflict's
// resolution (auto-resolved or best-effort manual). The index is rebuilt
// after each step rather than maintained incrementally — spec §9's own
// tradeoff for C2, reused here for the same reason.
func buildResolvedDocument(ctx context.Context, base, local, remote *docmodel.Document, deltaLocal, deltaRemote diffop.Result, conflicts []Conflict, resolutions []Resolution, manualTarget Strategy, yieldEvery int) (*docmodel.Document, *docerr.MergeError) {
	blocked := computeBlocked(conflicts)

	combined := make([]diffop.Operation, 0, len(deltaLocal.Operations)+len(deltaRemote.Operations))
	combined = append(combined, deltaLocal.Operations...)
	combined = append(combined, deltaRemote.Operations...)
	combined = filterBlockedOps(combined, blocked)
	combined = dedupeOps(combined)
	combined = diffop.OrderOperations(combined)

	working := base.Clone()
	visits := 0

	for _, op := range combined {
		visits++
		if merr := checkCancelled(ctx, visits, yieldEvery); merr != nil {
			return nil, merr
		}
		next, merr := applyOp(working, op, local, remote)
		if merr != nil {
			return nil, merr
		}
		working = next
	}

	for _, res := range resolutions {
		visits++
		if merr := checkCancelled(ctx, visits, yieldEvery); merr != nil {
			return nil, merr
		}
		next, merr := applyResolution(working, res, local, remote, manualTarget)
		if merr != nil {
			return nil, merr
		}
		working = next
	}

	if errs := docmodel.Validate(working); len(errs) > 0 {
		return nil, docerr.NewMergeError(docerr.MergeInternal, "", errs[0].Error())
	}
	return working, nil
}

func applyOp(working *docmodel.Document, op diffop.Operation, local, remote *docmodel.Document) (*docmodel.Document, *docerr.MergeError) {
	switch op.Kind {
	case diffop.OpRemove:
		return applyRemoveOp(working, op)
	case diffop.OpAdd:
		return applyAddOp(working, op, local, remote)
	case diffop.OpMove:
		return applyMoveOp(working, op)
	case diffop.OpModify:
		return applyModifyOp(working, op)
	default:
		return working, nil
	}
}

func applyRemoveOp(working *docmodel.Document, op diffop.Operation) (*docmodel.Document, *docerr.MergeError) {
	idx := index.Build(working)
	entry, ok := idx.FindByID(op.NodeID)
	if !ok {
		return working, nil // already gone, e.g. an ancestor frame was removed in the same pass
	}
	next, perr := patch.Apply(working, patch.Remove(entry.Path))
	if perr != nil {
		return nil, docerr.WrapMergeError(docerr.MergeInternal, "remove "+op.NodeID, perr)
	}
	return next, nil
}

func applyAddOp(working *docmodel.Document, op diffop.Operation, local, remote *docmodel.Document) (*docmodel.Document, *docerr.MergeError) {
	idx := index.Build(working)
	if _, exists := idx.FindByID(op.NodeID); exists {
		return working, nil
	}

	value, ok := nodeJSONValue(local, op.NodeID, op.IsArtboard)
	if !ok {
		value, ok = nodeJSONValue(remote, op.NodeID, op.IsArtboard)
	}
	if !ok {
		return working, nil
	}

	next, merr := insertChild(working, op.ParentID, op.IsArtboard, value)
	if merr != nil {
		return nil, merr
	}
	return next, nil
}

func applyMoveOp(working *docmodel.Document, op diffop.Operation) (*docmodel.Document, *docerr.MergeError) {
	idx := index.Build(working)
	entry, ok := idx.FindByID(op.NodeID)
	if !ok {
		return working, nil
	}
	if entry.ParentID == op.ParentID {
		return working, nil
	}
	return relocateChild(working, entry, op.ParentID)
}

func applyModifyOp(working *docmodel.Document, op diffop.Operation) (*docmodel.Document, *docerr.MergeError) {
	idx := index.Build(working)
	entry, ok := idx.FindByID(op.NodeID)
	if !ok {
		return working, nil
	}
	path := entry.Path + "/" + fieldJSONKey(op.Field)
	next, perr := patch.Apply(working, patch.Add(path, treeValue(op.NewValue)))
	if perr != nil {
		return nil, docerr.WrapMergeError(docerr.MergeInternal, "modify "+op.NodeID+" "+op.Field, perr)
	}
	return next, nil
}

func applyResolution(working *docmodel.Document, res Resolution, local, remote *docmodel.Document, manualTarget Strategy) (*docmodel.Document, *docerr.MergeError) {
	switch res.Conflict.Code {
	case CodeSDelMod, CodeSAddAdd:
		return reconcileExistence(working, res.Conflict.NodeID, local, remote, targetBranch(res, manualTarget))
	case CodeSMoveMove:
		return reconcileMove(working, res.Conflict.NodeID, local, remote, targetBranch(res, manualTarget))
	case CodeSOrder:
		return applyOrderResolution(working, res)
	default:
		return applyFieldResolution(working, res)
	}
}

func targetBranch(res Resolution, manualTarget Strategy) Strategy {
	if res.Strategy == Manual {
		return manualTarget
	}
	return res.Strategy
}

func applyFieldResolution(working *docmodel.Document, res Resolution) (*docmodel.Document, *docerr.MergeError) {
	idx := index.Build(working)
	entry, ok := idx.FindByID(res.Conflict.NodeID)
	if !ok {
		return working, nil
	}
	path := entry.Path + "/" + fieldJSONKey(res.Conflict.Field)
	next, perr := patch.Apply(working, patch.Add(path, treeValue(res.ResolvedValue)))
	if perr != nil {
		return nil, docerr.WrapMergeError(docerr.MergeInternal, "resolve "+res.Conflict.NodeID+" "+res.Conflict.Field, perr)
	}
	return next, nil
}

// reconcileExistence settles S-DEL-MOD and S-ADD-ADD by making working agree
// with whichever branch target names: present with that branch's content, or
// absent if that branch deleted it.
func reconcileExistence(working *docmodel.Document, id string, local, remote *docmodel.Document, target Strategy) (*docmodel.Document, *docerr.MergeError) {
	source := local
	if target == PreferRemote {
		source = remote
	}

	srcIdx := index.Build(source)
	srcEntry, inSource := srcIdx.FindByID(id)

	wIdx := index.Build(working)
	wEntry, inWorking := wIdx.FindByID(id)

	if !inSource {
		if !inWorking {
			return working, nil
		}
		next, perr := patch.Apply(working, patch.Remove(wEntry.Path))
		if perr != nil {
			return nil, docerr.WrapMergeError(docerr.MergeInternal, "resolve-existence remove "+id, perr)
		}
		return next, nil
	}

	value := entryValue(srcEntry)
	if inWorking {
		next, perr := patch.Apply(working, patch.Add(wEntry.Path, value))
		if perr != nil {
			return nil, docerr.WrapMergeError(docerr.MergeInternal, "resolve-existence replace "+id, perr)
		}
		return next, nil
	}

	next, merr := insertChild(working, srcEntry.ParentID, srcEntry.Kind == index.EntryArtboard, value)
	if merr != nil {
		return nil, merr
	}
	return next, nil
}

// reconcileMove settles S-MOVE-MOVE by placing the node under target
// branch's parent.
func reconcileMove(working *docmodel.Document, id string, local, remote *docmodel.Document, target Strategy) (*docmodel.Document, *docerr.MergeError) {
	source := local
	if target == PreferRemote {
		source = remote
	}
	srcIdx := index.Build(source)
	srcEntry, ok := srcIdx.FindByID(id)
	if !ok {
		return working, nil
	}

	wIdx := index.Build(working)
	wEntry, ok := wIdx.FindByID(id)
	if !ok {
		return working, nil
	}
	if wEntry.ParentID == srcEntry.ParentID {
		return working, nil
	}

	return relocateChild(working, wEntry, srcEntry.ParentID)
}

// applyOrderResolution replaces the positions currently held by the
// conflict's survivor subset (the ids common to base, local, and remote)
// with Reconcile's resolved sequence, leaving any other sibling (e.g. one
// just inserted by an add operation) at its current position.
func applyOrderResolution(working *docmodel.Document, res Resolution) (*docmodel.Document, *docerr.MergeError) {
	parentID := res.Conflict.ParentID
	idx := index.Build(working)

	current := childIDsOf(working, parentID)
	reordered := reorderWithSurvivors(current, res.ResolvedOrder)

	values := make([]any, 0, len(reordered))
	for _, id := range reordered {
		e, ok := idx.FindByID(id)
		if !ok {
			continue
		}
		values = append(values, entryValue(e))
	}

	targetPath := "/artboards"
	if parentID != "" {
		parent, ok := idx.FindByID(parentID)
		if !ok {
			return working, nil
		}
		targetPath = parent.Path + "/children"
	}

	next, perr := patch.Apply(working, patch.Add(targetPath, values))
	if perr != nil {
		return nil, docerr.WrapMergeError(docerr.MergeInternal, "resolve-order "+parentID, perr)
	}
	return next, nil
}

func childIDsOf(doc *docmodel.Document, parentID string) []string {
	var out []string
	for e := range index.Iter(doc) {
		if e.ParentID == parentID {
			out = append(out, e.ID)
		}
	}
	return out
}

// reorderWithSurvivors fills the positions current holds for ids in
// resolved, in resolved's order, leaving every other id where it already is.
func reorderWithSurvivors(current, resolved []string) []string {
	survivors := make(map[string]bool, len(resolved))
	for _, id := range resolved {
		survivors[id] = true
	}
	out := make([]string, 0, len(current))
	ri := 0
	for _, id := range current {
		if survivors[id] && ri < len(resolved) {
			out = append(out, resolved[ri])
			ri++
			continue
		}
		out = append(out, id)
	}
	return out
}

func entryValue(e index.Entry) any {
	if e.Kind == index.EntryArtboard {
		return e.Artboard
	}
	return e.Node
}

func nodeJSONValue(doc *docmodel.Document, id string, isArtboard bool) (any, bool) {
	if doc == nil {
		return nil, false
	}
	idx := index.Build(doc)
	entry, ok := idx.FindByID(id)
	if !ok || (entry.Kind == index.EntryArtboard) != isArtboard {
		return nil, false
	}
	return entryValue(entry), true
}

// insertChild appends value under parentID. The "-" array marker
// deliberately does not try to reconstruct the original sibling index:
// exact positional fidelity for a concurrent structural change is not this
// function's concern, since S-ORDER and mergeorder.Reconcile own ordering
// semantics specifically. When the parent currently has no children, the
// "-" marker cannot be used (its "children"/"artboards" key is either
// absent, due to omitempty, or null) — the whole array is set instead.
func insertChild(working *docmodel.Document, parentID string, isArtboard bool, value any) (*docmodel.Document, *docerr.MergeError) {
	if isArtboard {
		if len(working.Artboards) == 0 {
			return applyPatchOrWrap(working, patch.Add("/artboards", []any{value}), "add")
		}
		return applyPatchOrWrap(working, patch.Add("/artboards/-", value), "add")
	}
	idx := index.Build(working)
	parent, ok := idx.FindByID(parentID)
	if !ok {
		return nil, docerr.NewMergeError(docerr.MergeInternal, parentID, "parent not found for add")
	}
	if len(childIDsOf(working, parentID)) == 0 {
		return applyPatchOrWrap(working, patch.Add(parent.Path+"/children", []any{value}), "add")
	}
	return applyPatchOrWrap(working, patch.Add(parent.Path+"/children/-", value), "add")
}

// relocateChild removes entry from its current position and inserts it
// under newParentID via insertChild, rather than patch.Move, so the same
// empty-children fallback applies to move destinations too. The remove step
// only ever mutates a fresh copy returned to the caller; a failing insert
// after a successful remove simply discards that copy; working itself, and
// the document the caller already holds, are untouched.
func relocateChild(working *docmodel.Document, entry index.Entry, newParentID string) (*docmodel.Document, *docerr.MergeError) {
	removed, perr := patch.Apply(working, patch.Remove(entry.Path))
	if perr != nil {
		return nil, docerr.WrapMergeError(docerr.MergeInternal, "move "+entry.ID, perr)
	}
	value := entryValue(entry)
	return insertChild(removed, newParentID, entry.Kind == index.EntryArtboard, value)
}

func applyPatchOrWrap(working *docmodel.Document, p patch.Patch, op string) (*docmodel.Document, *docerr.MergeError) {
	next, perr := patch.Apply(working, p)
	if perr != nil {
		return nil, docerr.WrapMergeError(docerr.MergeInternal, op, perr)
	}
	return next, nil
}

func fieldJSONKey(field string) string {
	switch field {
	case "frame.x":
		return "frame/x"
	case "frame.y":
		return "frame/y"
	case "frame.width":
		return "frame/width"
	case "frame.height":
		return "frame/height"
	default:
		return field
	}
}

// treeValue converts a typed Go value (e.g. *docmodel.Layout) into the
// generic map[string]any/[]any shape the patch engine's tree expects, via
// the same marshal/unmarshal round trip patch.ValuesEqual uses for
// comparison.
func treeValue(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}
