package diffop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caravel-design/docengine/internal/docmodel"
)

func baseDoc() *docmodel.Document {
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
					}},
					{ID: "widget", Name: "Widget", Visible: true, Kind: docmodel.KindComponent, ComponentKey: "Button"},
				},
			},
		},
	}
}

func TestDiff_DetectsRemoveAndModify(t *testing.T) {
	from := baseDoc()
	to := baseDoc()
	to.Artboards[0].Children[0].Children[0].Text = "Changed"
	to.Artboards[0].Children = to.Artboards[0].Children[:1] // remove widget

	result := Diff(from, to, DefaultOptions())
	require.Equal(t, 1, result.Summary.Removed)
	require.Equal(t, 1, result.Summary.Modified)

	require.Equal(t, OpRemove, result.Operations[0].Kind)
	require.Equal(t, "widget", result.Operations[0].NodeID)
}

func TestDiff_RemovedFrameRemovesDescendants(t *testing.T) {
	from := baseDoc()
	to := baseDoc()
	to.Artboards[0].Children = to.Artboards[0].Children[1:] // remove hero (and title with it)

	result := Diff(from, to, DefaultOptions())
	require.Equal(t, 2, result.Summary.Removed)
	require.Equal(t, "title", result.Operations[0].NodeID, "deepest descendant removed first")
	require.Equal(t, "hero", result.Operations[1].NodeID)
}

func TestDiff_DetectsMoveOnParentChange(t *testing.T) {
	from := baseDoc()
	to := baseDoc()
	title := to.Artboards[0].Children[0].Children[0]
	to.Artboards[0].Children[0].Children = nil
	to.Artboards[0].Children = append(to.Artboards[0].Children, title)

	result := Diff(from, to, DefaultOptions())
	require.Equal(t, 1, result.Summary.Moved)
}

func TestDiff_IdenticalDocumentsProduceNoOps(t *testing.T) {
	from := baseDoc()
	to := baseDoc()
	result := Diff(from, to, DefaultOptions())
	require.Empty(t, result.Operations)
	require.Equal(t, 0, result.Summary.Total)
}

func TestDiff_RespectsIncludeFlags(t *testing.T) {
	from := baseDoc()
	to := baseDoc()
	to.Artboards[0].Children[1].Name = "Renamed"

	opts := DefaultOptions()
	opts.IncludeMetadata = false
	result := Diff(from, to, opts)
	require.Empty(t, result.Operations)
}

func TestDiff_OrderingIsDeterministicAcrossRuns(t *testing.T) {
	from := baseDoc()
	to := baseDoc()
	to.Artboards[0].Children[1].Visible = false
	to.Artboards[0].Children[0].Name = "Renamed Hero"

	r1 := Diff(from, to, DefaultOptions())
	r2 := Diff(from, to, DefaultOptions())
	require.Equal(t, r1.Operations, r2.Operations)
}

func multiArtboardDoc() *docmodel.Document {
	return &docmodel.Document{
		SchemaVersion: docmodel.SupportedSchemaVersion,
		ID:            "doc-1",
		Name:          "Landing",
		Artboards: []*docmodel.Artboard{
			{ID: "ab-1", Name: "Desktop", Children: []*docmodel.Node{
				{ID: "a-title", Name: "Title", Visible: true, Kind: docmodel.KindText, Text: "Hi"},
			}},
			{ID: "ab-2", Name: "Mobile", Children: []*docmodel.Node{
				{ID: "b-title", Name: "Title", Visible: true, Kind: docmodel.KindText, Text: "Hi"},
			}},
		},
	}
}

func TestDiff_ParallelArtboardsMatchesSequential(t *testing.T) {
	from := multiArtboardDoc()
	to := multiArtboardDoc()
	to.Artboards[0].Children[0].Text = "Changed A"
	to.Artboards[1].Children[0].Visible = false

	sequential := Diff(from, to, DefaultOptions())

	parallelOpts := DefaultOptions()
	parallelOpts.ParallelArtboards = true
	parallel := Diff(from, to, parallelOpts)

	require.Equal(t, sequential.Operations, parallel.Operations, "ParallelArtboards must produce the same ordered operations as the sequential path")
	require.Equal(t, sequential.Summary, parallel.Summary)
}

func TestDiff_MaxOperationsCaps(t *testing.T) {
	from := baseDoc()
	to := baseDoc()
	to.Artboards[0].Children[0].Name = "A"
	to.Artboards[0].Children[1].Name = "B"
	to.Artboards[0].Children[0].Visible = false
	to.Artboards[0].Children[1].Visible = false

	opts := DefaultOptions()
	opts.MaxOperations = 1
	result := Diff(from, to, opts)
	require.Len(t, result.Operations, 1)
}
