package jsonpointer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_TokenizesAndUnescapes(t *testing.T) {
	toks, err := Split("/artboards/0/children/2/visible")
	require.NoError(t, err)
	require.Equal(t, []string{"artboards", "0", "children", "2", "visible"}, toks)
}

func TestSplit_RootPath(t *testing.T) {
	toks, err := Split("")
	require.NoError(t, err)
	require.Empty(t, toks)
}

func TestSplit_RejectsMissingLeadingSlash(t *testing.T) {
	_, err := Split("artboards/0")
	require.Error(t, err)
}

func TestGet_WalksMapsAndSlices(t *testing.T) {
	tree := map[string]any{
		"artboards": []any{
			map[string]any{"id": "ab-1", "children": []any{
				map[string]any{"id": "n-1", "visible": true},
			}},
		},
	}
	val, err := Get(tree, []string{"artboards", "0", "children", "0", "visible"})
	require.NoError(t, err)
	require.Equal(t, true, val)
}

func TestGet_NotFound(t *testing.T) {
	tree := map[string]any{"artboards": []any{}}
	_, err := Get(tree, []string{"artboards", "0"})
	require.Error(t, err)
	var nf *ErrNotFound
	require.ErrorAs(t, err, &nf)
}

func TestArrayIndex_RejectsLeadingZero(t *testing.T) {
	_, err := ArrayIndex("03", 10)
	require.Error(t, err)
}

func TestArrayIndex_DashMeansAppend(t *testing.T) {
	idx, err := ArrayIndex("-", 5)
	require.NoError(t, err)
	require.Equal(t, 5, idx)
}
