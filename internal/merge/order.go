package merge

import (
	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/index"
)

// detectOrderConflicts implements S-ORDER: for every parent (an artboard or
// a frame node, keyed by id; "" is the document root holding the top-level
// artboards), compare the sibling order of ids common to base, local, and
// remote. A conflict fires only when both branches reordered relative to
// base and the branches disagree with each other.
func detectOrderConflicts(base, local, remote *docmodel.Document) []Conflict {
	baseOrders := childOrdersByParent(base)
	localOrders := childOrdersByParent(local)
	remoteOrders := childOrdersByParent(remote)

	parents := make(map[string]bool)
	for p := range baseOrders {
		parents[p] = true
	}
	for p := range localOrders {
		parents[p] = true
	}
	for p := range remoteOrders {
		parents[p] = true
	}

	var conflicts []Conflict
	for _, parentID := range sortedKeys(parents) {
		common := intersect3(baseOrders[parentID], localOrders[parentID], remoteOrders[parentID])
		if len(common) < 2 {
			continue
		}
		bCommon := filterOrder(baseOrders[parentID], common)
		lCommon := filterOrder(localOrders[parentID], common)
		rCommon := filterOrder(remoteOrders[parentID], common)

		localDiffers := !equalStrings(bCommon, lCommon)
		remoteDiffers := !equalStrings(bCommon, rCommon)
		bothAgree := equalStrings(lCommon, rCommon)

		if localDiffers && remoteDiffers && !bothAgree {
			conflicts = append(conflicts, Conflict{
				Code: CodeSOrder, NodeID: parentID, Severity: SeverityInfo, AutoResolvable: true, Confidence: 0.75,
				ParentID: parentID, BaseOrder: bCommon, LocalOrder: lCommon, RemoteOrder: rCommon,
			})
		}
	}
	return conflicts
}

func childOrdersByParent(doc *docmodel.Document) map[string][]string {
	out := make(map[string][]string)
	for e := range index.Iter(doc) {
		out[e.ParentID] = append(out[e.ParentID], e.ID)
	}
	return out
}

func intersect3(a, b, c []string) map[string]bool {
	inA := toSet(a)
	inB := toSet(b)
	inC := toSet(c)
	out := make(map[string]bool)
	for id := range inA {
		if inB[id] && inC[id] {
			out[id] = true
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func filterOrder(order []string, keep map[string]bool) []string {
	out := make([]string, 0, len(order))
	for _, id := range order {
		if keep[id] {
			out = append(out, id)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
