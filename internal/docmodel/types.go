// Package docmodel holds the canonical in-memory scene graph (Document,
// Artboard, Node) plus the schema validator and the canonical serializer.
// This is C1 in the engine's component breakdown: everything else in the
// engine (traversal, patching, storage, merge) operates on the types defined
// here and never mutates them except through the patch engine.
package docmodel

import "gorm.io/datatypes"

// SupportedSchemaVersion is the only schemaVersion parse/validate accept.
// Migration between schema versions is explicitly out of scope (§9 Open
// Questions).
const SupportedSchemaVersion = "0.1.0"

// Kind tags the variant a Node carries. Every traversal site switches
// exhaustively over Kind instead of relying on which optional fields are
// populated.
type Kind string

const (
	KindFrame     Kind = "frame"
	KindText      Kind = "text"
	KindComponent Kind = "component"
)

// Rect is the shared geometry type for artboards and nodes. Units are
// abstract document pixels; the engine never interprets them (no coordinate
// math, no hit-testing — that is a renderer concern, see spec Non-goals).
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fill is one entry of a Style's fill list.
type Fill struct {
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// Stroke is one entry of a Style's stroke list.
type Stroke struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// Style is the optional visual-appearance block shared by every node kind.
type Style struct {
	Fills   []Fill   `json:"fills,omitempty"`
	Strokes []Stroke `json:"strokes,omitempty"`
	Radius  float64  `json:"radius,omitempty"`
	Opacity float64  `json:"opacity,omitempty"`
}

// Padding is the inset block nested under Layout.
type Padding struct {
	Top    float64 `json:"top,omitempty"`
	Right  float64 `json:"right,omitempty"`
	Bottom float64 `json:"bottom,omitempty"`
	Left   float64 `json:"left,omitempty"`
}

// Layout is the optional auto-layout block shared by every node kind.
type Layout struct {
	Gap       float64  `json:"gap,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Padding   *Padding `json:"padding,omitempty"`
}

// TextStyle carries the text-variant-specific typography fields.
type TextStyle struct {
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight int     `json:"fontWeight,omitempty"`
	LineHeight float64 `json:"lineHeight,omitempty"`
	Color      string  `json:"color,omitempty"`
}

// Node is a tagged union over {frame, text, component}. The common header
// (ID, Name, Visible, Frame, Style, Layout, SemanticKey, Data) is always
// present; the variant payload is gated by Kind and enforced by Validate and
// by the custom (Un)MarshalJSON in node_json.go.
type Node struct {
	ID          string
	Name        string
	Visible     bool
	Frame       Rect
	Style       *Style
	Layout      *Layout
	SemanticKey string

	// Data is opaque, renderer-owned metadata attached to a node (spec §3's
	// "data" field): free-form JSON the engine stores and round-trips but
	// never inspects or diffs. datatypes.JSON keeps it byte-stable rather
	// than going through the usual map[string]any decode/re-encode cycle.
	Data datatypes.JSON

	Kind Kind

	// Children is populated only when Kind == KindFrame.
	Children []*Node

	// Text and TextStyle are populated only when Kind == KindText.
	Text      string
	TextStyle *TextStyle

	// ComponentKey and Props are populated only when Kind == KindComponent.
	ComponentKey string
	Props        map[string]any
}

// Artboard is the top-level container under a Document.
type Artboard struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Frame    Rect    `json:"frame"`
	Children []*Node `json:"children"`
}

// Document is the root entity of the scene graph.
type Document struct {
	SchemaVersion string      `json:"schemaVersion"`
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Artboards     []*Artboard `json:"artboards"`
}

// Clone deep-copies a document. Used by the store for undo/redo snapshots
// (which must be immutable from the store's perspective, §3 Lifecycle) and
// by the patch engine, whose Apply is pure and never mutates its input.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		SchemaVersion: d.SchemaVersion,
		ID:            d.ID,
		Name:          d.Name,
		Artboards:     make([]*Artboard, len(d.Artboards)),
	}
	for i, a := range d.Artboards {
		out.Artboards[i] = a.clone()
	}
	return out
}

func (a *Artboard) clone() *Artboard {
	if a == nil {
		return nil
	}
	out := &Artboard{ID: a.ID, Name: a.Name, Frame: a.Frame, Children: make([]*Node, len(a.Children))}
	for i, c := range a.Children {
		out.Children[i] = c.clone()
	}
	return out
}

func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		ID:           n.ID,
		Name:         n.Name,
		Visible:      n.Visible,
		Frame:        n.Frame,
		SemanticKey:  n.SemanticKey,
		Kind:         n.Kind,
		Text:         n.Text,
		ComponentKey: n.ComponentKey,
	}
	if n.Style != nil {
		s := *n.Style
		s.Fills = append([]Fill(nil), n.Style.Fills...)
		s.Strokes = append([]Stroke(nil), n.Style.Strokes...)
		out.Style = &s
	}
	if n.Layout != nil {
		l := *n.Layout
		if n.Layout.Padding != nil {
			p := *n.Layout.Padding
			l.Padding = &p
		}
		out.Layout = &l
	}
	if n.TextStyle != nil {
		ts := *n.TextStyle
		out.TextStyle = &ts
	}
	if n.Data != nil {
		out.Data = append(datatypes.JSON(nil), n.Data...)
	}
	if n.Props != nil {
		out.Props = cloneScalarMap(n.Props)
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.clone()
		}
	}
	return out
}

func cloneScalarMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneScalarMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return t
	}
}
