package merge

import (
	"sort"

	"github.com/caravel-design/docengine/internal/diffop"
	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/index"
)

// detect classifies every divergence between local and remote relative to
// base into the eleven codes of spec §4.5.2. Ids touched by only one
// branch, or touched identically by both, are not conflicts.
func detect(base, local, remote *docmodel.Document, deltaLocal, deltaRemote diffop.Result) []Conflict {
	baseIdx := index.Build(base)
	localIdx := index.Build(local)
	remoteIdx := index.Build(remote)

	localOps := opsByID(deltaLocal.Operations)
	remoteOps := opsByID(deltaRemote.Operations)

	touched := make(map[string]bool)
	for id := range localOps {
		touched[id] = true
	}
	for id := range remoteOps {
		touched[id] = true
	}

	var conflicts []Conflict
	ids := sortedKeys(touched)
	for _, id := range ids {
		_, inBase := baseIdx.FindByID(id)
		_, inLocal := localIdx.FindByID(id)
		_, inRemote := remoteIdx.FindByID(id)

		lRemoved := inBase && !inLocal
		rRemoved := inBase && !inRemote
		lAdded := !inBase && inLocal
		rAdded := !inBase && inRemote

		lops := localOps[id]
		rops := remoteOps[id]

		if (lRemoved && hasModifyOrMove(rops)) || (rRemoved && hasModifyOrMove(lops)) {
			conflicts = append(conflicts, Conflict{Code: CodeSDelMod, NodeID: id, Severity: SeverityError, AutoResolvable: false})
			continue
		}
		if lRemoved || rRemoved {
			// clean removal in at least one branch, no conflicting edit elsewhere
			continue
		}

		if lAdded && rAdded {
			le, _ := localIdx.FindByID(id)
			re, _ := remoteIdx.FindByID(id)
			if !entriesEqual(le, re) {
				conflicts = append(conflicts, Conflict{Code: CodeSAddAdd, NodeID: id, Severity: SeverityWarning, AutoResolvable: false})
			}
			continue
		}
		if lAdded || rAdded {
			continue
		}

		// present in base, local, and remote from here on.
		le, _ := localIdx.FindByID(id)
		re, _ := remoteIdx.FindByID(id)
		be, _ := baseIdx.FindByID(id)

		if le.Kind == index.EntryNode && re.Kind == index.EntryNode {
			localMoved := le.ParentID != be.ParentID
			remoteMoved := re.ParentID != be.ParentID
			if localMoved && remoteMoved && le.ParentID != re.ParentID {
				conflicts = append(conflicts, Conflict{Code: CodeSMoveMove, NodeID: id, Severity: SeverityWarning, AutoResolvable: false})
				continue
			}
		}

		conflicts = append(conflicts, fieldConflicts(id, be, le, re)...)
	}

	conflicts = append(conflicts, detectOrderConflicts(base, local, remote)...)
	return conflicts
}

func opsByID(ops []diffop.Operation) map[string][]diffop.Operation {
	m := make(map[string][]diffop.Operation)
	for _, op := range ops {
		m[op.NodeID] = append(m[op.NodeID], op)
	}
	return m
}

func hasModifyOrMove(ops []diffop.Operation) bool {
	for _, op := range ops {
		if op.Kind == diffop.OpModify || op.Kind == diffop.OpMove {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func entriesEqual(a, b index.Entry) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == index.EntryArtboard {
		return a.Artboard.Name == b.Artboard.Name && a.Artboard.Frame == b.Artboard.Frame
	}
	an, bn := a.Node, b.Node
	if an.Name != bn.Name || an.Visible != bn.Visible || an.Frame != bn.Frame {
		return false
	}
	if !diffop.LayoutsEqual(an.Layout, bn.Layout) || !diffop.StylesEqual(an.Style, bn.Style) {
		return false
	}
	switch an.Kind {
	case docmodel.KindText:
		return an.Text == bn.Text && diffop.TextStylesEqual(an.TextStyle, bn.TextStyle)
	case docmodel.KindComponent:
		return an.ComponentKey == bn.ComponentKey && diffop.PropsEqual(an.Props, bn.Props)
	default:
		return true
	}
}

// fieldConflicts compares base/local/remote for one id present in all three
// and emits P-GEOMETRY, P-VISIBILITY, P-LAYOUT, P-STYLE, C-TEXT,
// C-COMPONENT-PROPS, and M-NAME conflicts.
func fieldConflicts(id string, be, le, re index.Entry) []Conflict {
	var out []Conflict

	bName, lName, rName := entryName(be), entryName(le), entryName(re)
	if divergent3(bName, lName, rName) {
		out = append(out, Conflict{Code: CodeMName, NodeID: id, Severity: SeverityInfo, AutoResolvable: true, Confidence: 0.8, Field: "name", BaseValue: bName, LocalValue: lName, RemoteValue: rName})
	}

	bFrame, lFrame, rFrame := entryFrame(be), entryFrame(le), entryFrame(re)
	if bFrame != lFrame && bFrame != rFrame && lFrame != rFrame {
		out = append(out, Conflict{Code: CodePGeometry, NodeID: id, Severity: SeverityWarning, AutoResolvable: false, Field: "frame", BaseValue: bFrame, LocalValue: lFrame, RemoteValue: rFrame})
	}

	if be.Kind == index.EntryNode && le.Kind == index.EntryNode && re.Kind == index.EntryNode {
		if divergent3(be.Node.Visible, le.Node.Visible, re.Node.Visible) {
			out = append(out, Conflict{Code: CodePVisibility, NodeID: id, Severity: SeverityInfo, AutoResolvable: true, Confidence: 0.7, Field: "visible", BaseValue: be.Node.Visible, LocalValue: le.Node.Visible, RemoteValue: re.Node.Visible})
		}
		if !diffop.LayoutsEqual(be.Node.Layout, le.Node.Layout) && !diffop.LayoutsEqual(be.Node.Layout, re.Node.Layout) && !diffop.LayoutsEqual(le.Node.Layout, re.Node.Layout) {
			out = append(out, Conflict{Code: CodePLayout, NodeID: id, Severity: SeverityInfo, AutoResolvable: false, Field: "layout", BaseValue: be.Node.Layout, LocalValue: le.Node.Layout, RemoteValue: re.Node.Layout})
		}
		if !diffop.StylesEqual(be.Node.Style, le.Node.Style) && !diffop.StylesEqual(be.Node.Style, re.Node.Style) && !diffop.StylesEqual(le.Node.Style, re.Node.Style) {
			out = append(out, Conflict{Code: CodePStyle, NodeID: id, Severity: SeverityInfo, AutoResolvable: false, Field: "style", BaseValue: be.Node.Style, LocalValue: le.Node.Style, RemoteValue: re.Node.Style})
		}
		if be.Node.Kind == docmodel.KindText && le.Node.Kind == docmodel.KindText && re.Node.Kind == docmodel.KindText {
			if divergent3(be.Node.Text, le.Node.Text, re.Node.Text) {
				out = append(out, Conflict{Code: CodeCText, NodeID: id, Severity: SeverityWarning, AutoResolvable: false, Field: "text", BaseValue: be.Node.Text, LocalValue: le.Node.Text, RemoteValue: re.Node.Text})
			}
		}
		if be.Node.Kind == docmodel.KindComponent && le.Node.Kind == docmodel.KindComponent && re.Node.Kind == docmodel.KindComponent {
			if componentPropsConflict(be.Node.Props, le.Node.Props, re.Node.Props) {
				out = append(out, Conflict{Code: CodeCComponentProps, NodeID: id, Severity: SeverityWarning, AutoResolvable: false, Field: "props", BaseValue: be.Node.Props, LocalValue: le.Node.Props, RemoteValue: re.Node.Props})
			}
		}
	}

	return out
}

func entryName(e index.Entry) string {
	if e.Kind == index.EntryArtboard {
		return e.Artboard.Name
	}
	return e.Node.Name
}

func entryFrame(e index.Entry) docmodel.Rect {
	if e.Kind == index.EntryArtboard {
		return e.Artboard.Frame
	}
	return e.Node.Frame
}

func divergent3[T comparable](base, local, remote T) bool {
	return base != local && base != remote && local != remote
}

// componentPropsConflict implements "props differs on the same keys in
// both branches with different values": a key only counts as conflicting
// if both branches changed it (from base) to different values.
func componentPropsConflict(base, local, remote map[string]any) bool {
	keys := make(map[string]bool)
	for k := range base {
		keys[k] = true
	}
	for k := range local {
		keys[k] = true
	}
	for k := range remote {
		keys[k] = true
	}
	for k := range keys {
		bv, lv, rv := base[k], local[k], remote[k]
		if !diffop.ValuesDeepEqual(bv, lv) && !diffop.ValuesDeepEqual(bv, rv) && !diffop.ValuesDeepEqual(lv, rv) {
			return true
		}
	}
	return false
}
