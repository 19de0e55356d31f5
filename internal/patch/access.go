package patch

import (
	"encoding/json"
	"reflect"

	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/jsonpointer"
)

// ReadValue resolves path against doc's generic tree and returns the value
// found there, without mutating or revalidating anything. It is used for
// optimistic-concurrency checks (compare-and-swap style property writes)
// ahead of an actual Apply.
func ReadValue(doc *docmodel.Document, path string) (any, error) {
	tree, perr := decodeTree(doc)
	if perr != nil {
		return nil, perr
	}
	tokens, terr := jsonpointer.Split(path)
	if terr != nil {
		return nil, terr
	}
	return jsonpointer.Get(tree, tokens)
}

// ValuesEqual compares two values as they would appear in the generic JSON
// tree (after a marshal/unmarshal round trip), so that e.g. an int literal
// supplied by a caller compares equal to the float64 the tree would hold.
func ValuesEqual(a, b any) bool {
	na, aerr := normalize(a)
	nb, berr := normalize(b)
	if aerr != nil || berr != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
