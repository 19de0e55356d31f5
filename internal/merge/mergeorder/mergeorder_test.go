package mergeorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcile_BothBranchesReorderSameSurvivors(t *testing.T) {
	// spec §8 scenario 3's literal fixture: base [A, B, C], local [B, C, A],
	// remote [C, A, B] — no ids added or removed, both branches reorder.
	base := []string{"A", "B", "C"}
	local := []string{"B", "C", "A"}
	remote := []string{"C", "A", "B"}

	got := Reconcile(base, local, remote)
	require.Equal(t, []string{"B", "C", "A"}, got, "survivors keep local's relative order")
}

func TestReconcile_FreshIdsGoLast(t *testing.T) {
	base := []string{"A", "B"}
	local := []string{"A", "B", "new-local"}
	remote := []string{"B", "A", "new-remote"}

	got := Reconcile(base, local, remote)
	require.Equal(t, []string{"A", "B", "new-local", "new-remote"}, got)
}

func TestReconcile_IdRemovedInOneBranchIsDropped(t *testing.T) {
	base := []string{"A", "B", "C"}
	local := []string{"B", "C"} // removed A
	remote := []string{"C", "A", "B"}

	got := Reconcile(base, local, remote)
	require.NotContains(t, got, "A")
	require.ElementsMatch(t, []string{"B", "C"}, got)
}

func TestReconcile_NoChangeIsIdentity(t *testing.T) {
	ids := []string{"A", "B", "C"}
	got := Reconcile(ids, ids, ids)
	require.Equal(t, []string{"A", "B", "C"}, got)
}

func TestReconcile_EmptyInputsProduceEmptyOutput(t *testing.T) {
	got := Reconcile(nil, nil, nil)
	require.Empty(t, got)
}
