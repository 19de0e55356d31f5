// Package mergeorder implements the S-ORDER auto-resolution algorithm:
// reconciling a sibling order that changed in both branches relative to a
// common base.
package mergeorder

// Reconcile computes the merged sibling order for an S-ORDER conflict: ids
// present in both local and remote come first, in local's relative order;
// ids absent from base that appear in only one branch are appended after
// them in first-seen order (local, then remote). An id from base that is
// missing from either branch is dropped. Every surviving id has its own
// local position, so no ties arise and remote's order is never consulted.
func Reconcile(base, local, remote []string) []string {
	baseSet := toSet(base)
	localSet := toSet(local)
	remoteSet := toSet(remote)

	// ids removed in neither branch: present in local and remote.
	survivors := make([]string, 0, len(local))
	for _, id := range local {
		if remoteSet[id] {
			survivors = append(survivors, id)
		}
	}

	remotePos := make(map[string]int, len(remote))
	for i, id := range remote {
		remotePos[id] = i
	}
	localPos := make(map[string]int, len(local))
	for i, id := range local {
		localPos[id] = i
	}

	// survivors are already in local's order (they were collected by
	// scanning local), so this step returns them unchanged.
	orderedSurvivors := stableSortByLocalThenRemote(survivors, localPos, remotePos)

	// ids new to both branches (not present in base) go last, in
	// first-seen order scanning local then remote.
	var fresh []string
	seen := make(map[string]bool, len(orderedSurvivors))
	for _, id := range orderedSurvivors {
		seen[id] = true
	}
	for _, id := range local {
		if !baseSet[id] && !seen[id] {
			fresh = append(fresh, id)
			seen[id] = true
		}
	}
	for _, id := range remote {
		if !baseSet[id] && !seen[id] {
			fresh = append(fresh, id)
			seen[id] = true
		}
	}

	return append(orderedSurvivors, fresh...)
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func stableSortByLocalThenRemote(ids []string, localPos, remotePos map[string]int) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	// ids is already in local's relative order (derived by scanning local
	// above), so this returns a copy of it without sorting. remotePos is
	// not consulted: every id has a distinct local position, so there are
	// no ties for it to break, and an unordered input is returned as given.
	_ = remotePos
	return out
}
