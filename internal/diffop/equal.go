package diffop

import "github.com/caravel-design/docengine/internal/docmodel"

func LayoutsEqual(a, b *docmodel.Layout) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Gap != b.Gap || a.Direction != b.Direction {
		return false
	}
	return PaddingsEqual(a.Padding, b.Padding)
}

func PaddingsEqual(a, b *docmodel.Padding) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func StylesEqual(a, b *docmodel.Style) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Radius != b.Radius || a.Opacity != b.Opacity {
		return false
	}
	if len(a.Fills) != len(b.Fills) || len(a.Strokes) != len(b.Strokes) {
		return false
	}
	for i := range a.Fills {
		if a.Fills[i] != b.Fills[i] {
			return false
		}
	}
	for i := range a.Strokes {
		if a.Strokes[i] != b.Strokes[i] {
			return false
		}
	}
	return true
}

func TextStylesEqual(a, b *docmodel.TextStyle) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func PropsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !ValuesDeepEqual(av, bv) {
			return false
		}
	}
	return true
}

func ValuesDeepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		return ok && PropsEqual(av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ValuesDeepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
