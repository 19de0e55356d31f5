package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/index"
)

func indexIDs(doc *docmodel.Document) map[string]index.Entry {
	out := make(map[string]index.Entry)
	for e := range index.Iter(doc) {
		out[e.ID] = e
	}
	return out
}

func fixtureBase() *docmodel.Document {
	return &docmodel.Document{
		SchemaVersion: docmodel.SupportedSchemaVersion,
		ID:            "doc-1",
		Name:          "Landing",
		Artboards: []*docmodel.Artboard{
			{
				ID:   "ab-1",
				Name: "Desktop",
				Children: []*docmodel.Node{
					{ID: "hero", Name: "Hero", Visible: true, Kind: docmodel.KindFrame, Children: []*docmodel.Node{
						{ID: "title", Name: "Title", Visible: true, Kind: docmodel.KindText, Text: "Hi"},
						{ID: "subtitle", Name: "Subtitle", Visible: true, Kind: docmodel.KindText, Text: "Sub"},
						{ID: "caption", Name: "Caption", Visible: true, Kind: docmodel.KindText, Text: "Cap"},
					}},
					{ID: "widget", Name: "Widget", Visible: true, Kind: docmodel.KindComponent, ComponentKey: "Button", Props: map[string]any{"label": "Go"}},
				},
			},
		},
	}
}

func TestMerge_EqualInputsProduceCleanResult(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	result, merr := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.Nil(t, merr)
	require.Empty(t, result.UnresolvedConflicts)
	require.Equal(t, 1.0, result.Confidence)
	require.True(t, result.Success)
	require.False(t, result.NeedsManualReview)
	require.Len(t, result.ResolvedDocument.Artboards[0].Children, 2)
}

func TestMerge_DisjointChangesMergeCleanly(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	local.Artboards[0].Children[0].Children[0].Text = "Hello"
	remote.Artboards[0].Children[1].Name = "Renamed Widget"

	result, merr := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.Nil(t, merr)
	require.Empty(t, result.UnresolvedConflicts)
	require.Equal(t, 1.0, result.Confidence)

	idx := indexIDs(result.ResolvedDocument)
	require.Equal(t, "Hello", idx["title"].Node.Text)
	require.Equal(t, "Renamed Widget", idx["widget"].Node.Name)
}

func TestMerge_SDelModIsUnresolved(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	local.Artboards[0].Children[0].Children = local.Artboards[0].Children[0].Children[:1] // remove subtitle and caption
	remote.Artboards[0].Children[0].Children[1].Text = "Changed"                           // modify subtitle

	result, merr := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.Nil(t, merr)
	require.Len(t, result.UnresolvedConflicts, 1)
	require.Equal(t, CodeSDelMod, result.UnresolvedConflicts[0].Code)
	require.True(t, result.NeedsManualReview)
}

func TestMerge_MNameAutoResolvesPreferRemote(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	// three pairwise-distinct names: a genuine two-sided conflict, unlike a
	// boolean field where two branches diverging from base necessarily
	// collide on the field's only other value.
	local.Artboards[0].Children[1].Name = "LocalWidget"
	remote.Artboards[0].Children[1].Name = "RemoteWidget"

	result, merr := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.Nil(t, merr)
	require.Empty(t, result.UnresolvedConflicts)
	require.Len(t, result.AppliedResolutions, 1)
	require.Equal(t, CodeMName, result.AppliedResolutions[0].Conflict.Code)

	idx := indexIDs(result.ResolvedDocument)
	require.Equal(t, "RemoteWidget", idx["widget"].Node.Name, "prefer-remote default strategy keeps remote's value")
}

func TestMerge_SAddAddDifferentContentIsUnresolved(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	local.Artboards[0].Children = append(local.Artboards[0].Children, &docmodel.Node{ID: "new-1", Name: "LocalNew", Visible: true, Kind: docmodel.KindText, Text: "L"})
	remote.Artboards[0].Children = append(remote.Artboards[0].Children, &docmodel.Node{ID: "new-1", Name: "RemoteNew", Visible: true, Kind: docmodel.KindText, Text: "R"})

	result, merr := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.Nil(t, merr)
	require.Len(t, result.UnresolvedConflicts, 1)
	require.Equal(t, CodeSAddAdd, result.UnresolvedConflicts[0].Code)
}

func TestMerge_ConflictCodesAreSymmetric(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	local.Artboards[0].Children[0].Children = local.Artboards[0].Children[0].Children[:1]
	remote.Artboards[0].Children[0].Children[1].Text = "Changed"

	r1, merr1 := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.Nil(t, merr1)
	r2, merr2 := Merge(context.Background(), base, remote, local, DefaultOptions())
	require.Nil(t, merr2)

	require.Equal(t, codesOf(r1.UnresolvedConflicts), codesOf(r2.UnresolvedConflicts))
}

func TestMerge_SOrderAutoResolves(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	// base order: title, subtitle, caption. Local swaps the first two; remote
	// moves caption to the front — both reorder relative to base, and
	// disagree with each other, so S-ORDER fires and must auto-resolve.
	lc := local.Artboards[0].Children[0].Children
	lc[0], lc[1] = lc[1], lc[0]

	rc := remote.Artboards[0].Children[0].Children
	rc[0], rc[1], rc[2] = rc[2], rc[0], rc[1]

	result, merr := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.Nil(t, merr)
	require.Empty(t, result.UnresolvedConflicts)

	var orderRes []Resolution
	for _, r := range result.AppliedResolutions {
		if r.Conflict.Code == CodeSOrder {
			orderRes = append(orderRes, r)
		}
	}
	require.Len(t, orderRes, 1)

	resolvedOrder := childOrdersByParent(result.ResolvedDocument)["hero"]
	require.ElementsMatch(t, []string{"title", "subtitle", "caption"}, resolvedOrder)
}

func TestMerge_SOrderStrategyOverrideAppliesChosenBranch(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	lc := local.Artboards[0].Children[0].Children
	lc[0], lc[1] = lc[1], lc[0]

	rc := remote.Artboards[0].Children[0].Children
	rc[0], rc[1], rc[2] = rc[2], rc[0], rc[1]

	for _, tc := range []struct {
		strategy Strategy
		want     []string
	}{
		{PreferLocal, []string{"subtitle", "title", "caption"}},
		{PreferRemote, []string{"caption", "title", "subtitle"}},
	} {
		opts := DefaultOptions()
		opts.Strategies = map[ConflictCode]Strategy{CodeSOrder: tc.strategy}

		result, merr := Merge(context.Background(), base, local, remote, opts)
		require.Nil(t, merr)
		require.Empty(t, result.UnresolvedConflicts)

		resolvedOrder := childOrdersByParent(result.ResolvedDocument)["hero"]
		require.Equal(t, tc.want, resolvedOrder, "strategy %s must apply its own branch's order, not base's", tc.strategy)
	}
}

func TestMerge_RejectsSchemaVersionMismatch(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()
	remote.SchemaVersion = "9.9.9"

	_, merr := Merge(context.Background(), base, local, remote, DefaultOptions())
	require.NotNil(t, merr)
}

func TestMerge_RejectsNilInput(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()

	_, merr := Merge(context.Background(), base, local, nil, DefaultOptions())
	require.NotNil(t, merr)
}

func TestMerge_RespectsCancelledContext(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, merr := Merge(ctx, base, local, remote, DefaultOptions())
	require.NotNil(t, merr)
}

func TestMerge_FailOnUnresolvedMakesSuccessFalse(t *testing.T) {
	base := fixtureBase()
	local := fixtureBase()
	remote := fixtureBase()

	local.Artboards[0].Children[0].Children = local.Artboards[0].Children[0].Children[:1]
	remote.Artboards[0].Children[0].Children[1].Text = "Changed"

	opts := DefaultOptions()
	opts.FailOnUnresolved = true
	result, merr := Merge(context.Background(), base, local, remote, opts)
	require.Nil(t, merr)
	require.False(t, result.Success)
}

func codesOf(cs []Conflict) []ConflictCode {
	out := make([]ConflictCode, len(cs))
	for i, c := range cs {
		out[i] = c.Code
	}
	return out
}
