package patch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caravel-design/docengine/internal/docmodel"
)

func fixtureDoc() *docmodel.Document {
	return &docmodel.Document{
		SchemaVersion: docmodel.SupportedSchemaVersion,
		ID:            "doc-1",
		Name:          "Landing",
		Artboards: []*docmodel.Artboard{
			{
				ID:    "ab-1",
				Name:  "Desktop",
				Frame: docmodel.Rect{Width: 1440, Height: 900},
				Children: []*docmodel.Node{
					{ID: "n-1", Name: "A", Visible: true, Kind: docmodel.KindFrame, Frame: docmodel.Rect{Width: 10, Height: 10}},
					{ID: "n-2", Name: "B", Visible: true, Kind: docmodel.KindFrame, Frame: docmodel.Rect{Width: 10, Height: 10}},
				},
			},
		},
	}
}

func TestApply_ReplaceVisible(t *testing.T) {
	doc := fixtureDoc()
	out, perr := Apply(doc, Replace("/artboards/0/children/0/visible", false))
	require.Nil(t, perr)
	require.False(t, out.Artboards[0].Children[0].Visible)
	// input untouched
	require.True(t, doc.Artboards[0].Children[0].Visible)
}

func TestApply_ReplaceTypeMismatchFails(t *testing.T) {
	doc := fixtureDoc()
	_, perr := Apply(doc, Replace("/artboards/0/children/0/visible", "nope"))
	require.NotNil(t, perr)
	require.Equal(t, "type-mismatch", string(perr.Kind))
}

func TestApply_ReplaceNumericFieldAcceptsIntLiteral(t *testing.T) {
	doc := fixtureDoc()
	// 800 arrives as a Go int literal, but the tree's existing value decoded
	// from JSON is always float64 — typeMismatch must normalize candidate
	// through the same round trip before comparing, or this is rejected.
	out, perr := Apply(doc, Replace("/artboards/0/children/0/frame/width", 800))
	require.Nil(t, perr)
	require.Equal(t, float64(800), out.Artboards[0].Children[0].Frame.Width)
}

func TestApply_ReplaceMissingPathFails(t *testing.T) {
	doc := fixtureDoc()
	_, perr := Apply(doc, Replace("/artboards/9/visible", false))
	require.NotNil(t, perr)
	require.Equal(t, "path-not-found", string(perr.Kind))
}

func TestApply_AddInsertsAndShiftsSuccessors(t *testing.T) {
	doc := fixtureDoc()
	newNode := map[string]any{
		"type": "frame", "id": "n-3", "name": "C", "visible": true,
		"frame": map[string]any{"x": 0, "y": 0, "width": 5, "height": 5},
	}
	out, perr := Apply(doc, Add("/artboards/0/children/1", newNode))
	require.Nil(t, perr)
	require.Len(t, out.Artboards[0].Children, 3)
	require.Equal(t, "n-3", out.Artboards[0].Children[1].ID)
	require.Equal(t, "n-2", out.Artboards[0].Children[2].ID)
}

func TestApply_RemoveDeletesAndShifts(t *testing.T) {
	doc := fixtureDoc()
	out, perr := Apply(doc, Remove("/artboards/0/children/0"))
	require.Nil(t, perr)
	require.Len(t, out.Artboards[0].Children, 1)
	require.Equal(t, "n-2", out.Artboards[0].Children[0].ID)
}

func TestApply_RemoveMissingPathFails(t *testing.T) {
	doc := fixtureDoc()
	_, perr := Apply(doc, Remove("/artboards/0/children/9"))
	require.NotNil(t, perr)
	require.Equal(t, "path-not-found", string(perr.Kind))
}

func TestApply_MoveRelocatesValue(t *testing.T) {
	doc := fixtureDoc()
	out, perr := Apply(doc, Move("/artboards/0/children/0", "/artboards/0/children/1"))
	require.Nil(t, perr)
	require.Len(t, out.Artboards[0].Children, 2)
	require.Equal(t, "n-2", out.Artboards[0].Children[0].ID)
	require.Equal(t, "n-1", out.Artboards[0].Children[1].ID)
}

func TestApply_MoveFailureLeavesDocumentUntouched(t *testing.T) {
	doc := fixtureDoc()
	_, perr := Apply(doc, Move("/artboards/0/children/0", "/artboards/9/children/0"))
	require.NotNil(t, perr)
	require.Len(t, doc.Artboards[0].Children, 2)
	require.Equal(t, "n-1", doc.Artboards[0].Children[0].ID)
}

func TestApply_InvariantViolationOnDuplicateID(t *testing.T) {
	doc := fixtureDoc()
	_, perr := Apply(doc, Replace("/artboards/0/children/1/id", "n-1"))
	require.NotNil(t, perr)
	require.Equal(t, "invariant-violation", string(perr.Kind))
}

func TestApply_UnknownOpFails(t *testing.T) {
	doc := fixtureDoc()
	_, perr := Apply(doc, Patch{Op: "frobnicate", Path: "/artboards/0"})
	require.NotNil(t, perr)
	require.Equal(t, "unknown-op", string(perr.Kind))
}

func TestApply_Deterministic(t *testing.T) {
	doc := fixtureDoc()
	p := Replace("/artboards/0/children/0/name", "Renamed")

	out1, perr1 := Apply(doc, p)
	require.Nil(t, perr1)
	out2, perr2 := Apply(doc, p)
	require.Nil(t, perr2)

	b1, err := docmodel.Canonicalize(out1)
	require.NoError(t, err)
	b2, err := docmodel.Canonicalize(out2)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}
