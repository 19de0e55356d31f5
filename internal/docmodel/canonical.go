package docmodel

import (
	"encoding/json"
	"fmt"
)

// Canonicalize serializes doc to its byte-stable canonical form (§3
// invariant 5, §6): object keys sorted lexicographically at every level,
// arrays in insertion order, UTF-8 without BOM, two-space indentation, and a
// trailing newline.
//
// The implementation leans on two facts about encoding/json rather than
// hand-rolling a sorting encoder: (1) marshaling a Go map with string keys
// always emits its keys in sorted order, at every nesting depth, and (2)
// decoding into `any` then re-marshaling that generic tree is therefore
// sufficient to canonicalize a document whose own struct-tag-driven
// marshaling may not otherwise be alphabetical.
func Canonicalize(doc *Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docmodel.Canonicalize: marshaling document: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("docmodel.Canonicalize: re-decoding for canonical form: %w", err)
	}

	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("docmodel.Canonicalize: encoding canonical form: %w", err)
	}
	return append(out, '\n'), nil
}
