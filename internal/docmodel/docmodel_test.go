package docmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func minimalDoc() *Document {
	return &Document{
		SchemaVersion: SupportedSchemaVersion,
		ID:            "doc-1",
		Name:          "Landing",
		Artboards: []*Artboard{
			{
				ID:    "ab-1",
				Name:  "Desktop",
				Frame: Rect{Width: 1440, Height: 900},
				Children: []*Node{
					{
						ID:      "n-frame",
						Name:    "Hero",
						Visible: true,
						Frame:   Rect{X: 0, Y: 0, Width: 1440, Height: 400},
						Kind:    KindFrame,
						Children: []*Node{
							{
								ID:      "n-text",
								Name:    "Title",
								Visible: true,
								Frame:   Rect{X: 10, Y: 10, Width: 300, Height: 40},
								Kind:    KindText,
								Text:    "Hello",
							},
						},
					},
				},
			},
		},
	}
}

func TestValidate_MinimalDocumentIsValid(t *testing.T) {
	errs := Validate(minimalDoc())
	require.Empty(t, errs)
}

func TestValidate_DetectsDuplicateID(t *testing.T) {
	doc := minimalDoc()
	doc.Artboards[0].Children[0].Children[0].ID = "n-frame"

	errs := Validate(doc)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Kind == "duplicate-id" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidate_DetectsNegativeDimension(t *testing.T) {
	doc := minimalDoc()
	doc.Artboards[0].Children[0].Frame.Width = -5

	errs := Validate(doc)
	require.NotEmpty(t, errs)
	require.Equal(t, "negative-dimension", string(errs[0].Kind))
}

func TestValidate_DetectsUnknownVariant(t *testing.T) {
	doc := minimalDoc()
	doc.Artboards[0].Children[0].Kind = "shape"

	errs := Validate(doc)
	require.NotEmpty(t, errs)
	var found bool
	for _, e := range errs {
		if e.Kind == "unknown-variant" {
			found = true
		}
	}
	require.True(t, found)
}

func TestParse_RoundTrip(t *testing.T) {
	doc := minimalDoc()
	b, err := Canonicalize(doc)
	require.NoError(t, err)

	parsed, verr := Parse(b)
	require.Nil(t, verr)

	b2, err := Canonicalize(parsed)
	require.NoError(t, err)
	require.Equal(t, b, b2)
}

func TestParse_RejectsUnsupportedSchema(t *testing.T) {
	doc := minimalDoc()
	doc.SchemaVersion = "9.9.9"
	b, err := Canonicalize(doc)
	require.NoError(t, err)

	_, verr := Parse(b)
	require.NotNil(t, verr)
	require.Equal(t, "unsupported-schema", string(verr.Kind))
}

func TestParse_RejectsMalformedJSON(t *testing.T) {
	_, verr := Parse([]byte("{not json"))
	require.NotNil(t, verr)
	require.Equal(t, "malformed-json", string(verr.Kind))
}

func TestCanonicalize_Idempotent(t *testing.T) {
	doc := minimalDoc()
	b1, err := Canonicalize(doc)
	require.NoError(t, err)

	parsed, verr := Parse(b1)
	require.Nil(t, verr)

	b2, err := Canonicalize(parsed)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestCanonicalize_SortsKeysRegardlessOfFieldOrder(t *testing.T) {
	doc := minimalDoc()
	b, err := Canonicalize(doc)
	require.NoError(t, err)
	require.Contains(t, string(b), "\"artboards\"")
	require.Contains(t, string(b), "\n")
}

func TestClone_IsDeepAndIndependent(t *testing.T) {
	doc := minimalDoc()
	clone := doc.Clone()
	clone.Artboards[0].Children[0].Name = "Mutated"

	require.Equal(t, "Hero", doc.Artboards[0].Children[0].Name)
	require.Equal(t, "Mutated", clone.Artboards[0].Children[0].Name)
}
