package docmodel

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// nodeEnvelope is the wire shape of a Node: the shared header plus every
// variant's payload declared optional. MarshalJSON/UnmarshalJSON translate
// between this envelope and the typed, kind-gated Node in types.go so every other
// package works with the exhaustively-switched Go type instead of a bag of
// optional fields.
type nodeEnvelope struct {
	Type        Kind           `json:"type"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Visible     *bool          `json:"visible,omitempty"`
	Frame       Rect           `json:"frame"`
	Style       *Style         `json:"style,omitempty"`
	Layout      *Layout        `json:"layout,omitempty"`
	SemanticKey string          `json:"semanticKey,omitempty"`
	Data        datatypes.JSON `json:"data,omitempty"`

	Children []*Node `json:"children,omitempty"`

	Text      string     `json:"text,omitempty"`
	TextStyle *TextStyle `json:"textStyle,omitempty"`

	ComponentKey string         `json:"componentKey,omitempty"`
	Props        map[string]any `json:"props,omitempty"`
}

func (n Node) MarshalJSON() ([]byte, error) {
	visible := n.Visible
	env := nodeEnvelope{
		Type:        n.Kind,
		ID:          n.ID,
		Name:        n.Name,
		Visible:     &visible,
		Frame:       n.Frame,
		Style:       n.Style,
		Layout:      n.Layout,
		SemanticKey: n.SemanticKey,
		Data:        n.Data,
	}
	switch n.Kind {
	case KindFrame:
		env.Children = n.Children
	case KindText:
		env.Text = n.Text
		env.TextStyle = n.TextStyle
	case KindComponent:
		env.ComponentKey = n.ComponentKey
		env.Props = n.Props
	}
	return json.Marshal(env)
}

func (n *Node) UnmarshalJSON(b []byte) error {
	var env nodeEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return fmt.Errorf("docmodel: decoding node: %w", err)
	}
	n.Kind = env.Type
	n.ID = env.ID
	n.Name = env.Name
	n.Visible = env.Visible == nil || *env.Visible
	n.Frame = env.Frame
	n.Style = env.Style
	n.Layout = env.Layout
	n.SemanticKey = env.SemanticKey
	n.Data = env.Data

	switch env.Type {
	case KindFrame:
		n.Children = env.Children
	case KindText:
		n.Text = env.Text
		n.TextStyle = env.TextStyle
	case KindComponent:
		n.ComponentKey = env.ComponentKey
		n.Props = env.Props
	default:
		// Unknown variant tags are left to the validator; parse stays
		// all-or-nothing but still needs a concrete Kind to report on.
	}
	return nil
}
