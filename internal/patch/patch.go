// Package patch implements C3, the engine that applies a single typed
// mutation to a Document by JSON-pointer-like path and returns a new,
// revalidated Document. Apply never mutates its input.
//
// The implementation works in three steps, grounded on the reference JSON
// Patch (RFC 6902) implementations in the retrieval pack: decode the
// document into a generic map[string]any/[]any tree (the same shape
// docmodel.Canonicalize already produces), mutate a copy of that tree with
// plain map/slice operations, then re-encode and re-parse it through
// docmodel so every §3 invariant is re-checked for free instead of being
// duplicated here.
package patch

import (
	"encoding/json"
	"fmt"

	"github.com/caravel-design/docengine/internal/docerr"
	"github.com/caravel-design/docengine/internal/docmodel"
	"github.com/caravel-design/docengine/internal/jsonpointer"
)

// Op names a patch operation, matching the wire format in spec §6.
type Op string

const (
	OpReplace Op = "replace"
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpMove    Op = "move"
)

// Patch is a single typed mutation addressed by path.
type Patch struct {
	Op    Op     `json:"op"`
	Path  string `json:"path"`
	From  string `json:"from,omitempty"`
	Value any    `json:"value,omitempty"`
}

func Replace(path string, value any) Patch { return Patch{Op: OpReplace, Path: path, Value: value} }
func Add(path string, value any) Patch     { return Patch{Op: OpAdd, Path: path, Value: value} }
func Remove(path string) Patch             { return Patch{Op: OpRemove, Path: path} }
func Move(from, to string) Patch           { return Patch{Op: OpMove, From: from, Path: to} }

// Apply applies p to doc and returns a brand-new Document. doc is never
// mutated, even when Apply fails partway through a move.
func Apply(doc *docmodel.Document, p Patch) (*docmodel.Document, *docerr.PatchError) {
	newDoc, _, err := apply(doc, p)
	return newDoc, err
}

// DryRun previews the effect of p without it ever becoming the committed
// document — used by callers that want a before/after preview (e.g. an
// editor's inline diff) without going through the store's history machinery.
func DryRun(doc *docmodel.Document, p Patch) (*docmodel.Document, *docerr.PatchError) {
	return Apply(doc, p)
}

func apply(doc *docmodel.Document, p Patch) (*docmodel.Document, []byte, *docerr.PatchError) {
	if doc == nil {
		return nil, nil, docerr.NewPatchError(docerr.PatchPathNotFound, p.Path, "no document to patch")
	}

	tree, perr := decodeTree(doc)
	if perr != nil {
		return nil, nil, perr
	}

	var newTree any
	var err *docerr.PatchError

	switch p.Op {
	case OpReplace:
		newTree, err = applyReplace(tree, p.Path, p.Value)
	case OpAdd:
		newTree, err = applyAdd(tree, p.Path, p.Value)
	case OpRemove:
		newTree, err = applyRemoveOp(tree, p.Path)
	case OpMove:
		newTree, err = applyMove(tree, p.From, p.Path)
	default:
		return nil, nil, docerr.NewPatchError(docerr.PatchUnknownOp, p.Path, fmt.Sprintf("unknown patch op %q", p.Op))
	}
	if err != nil {
		return nil, nil, err
	}

	raw, merr := json.Marshal(newTree)
	if merr != nil {
		return nil, nil, docerr.NewPatchError(docerr.PatchInvariantViolation, p.Path, fmt.Sprintf("re-encoding patched document: %v", merr))
	}

	newDoc, verr := docmodel.Parse(raw)
	if verr != nil {
		return nil, nil, docerr.NewPatchError(docerr.PatchInvariantViolation, verr.Pointer, verr.Error())
	}
	return newDoc, raw, nil
}

func decodeTree(doc *docmodel.Document) (any, *docerr.PatchError) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, docerr.NewPatchError(docerr.PatchInvariantViolation, "", fmt.Sprintf("encoding document: %v", err))
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, docerr.NewPatchError(docerr.PatchInvariantViolation, "", fmt.Sprintf("decoding document: %v", err))
	}
	return tree, nil
}

func applyReplace(tree any, path string, value any) (any, *docerr.PatchError) {
	tokens, terr := jsonpointer.Split(path)
	if terr != nil || len(tokens) == 0 {
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, path, "replace requires a non-root path")
	}
	return replaceAt(tree, tokens, value, path)
}

func replaceAt(container any, tokens []string, value any, fullPath string) (any, *docerr.PatchError) {
	tok, rest := tokens[0], tokens[1:]
	switch v := container.(type) {
	case map[string]any:
		old, exists := v[tok]
		if !exists {
			return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "no value at path")
		}
		if len(rest) == 0 {
			if typeMismatch(old, value) {
				return nil, docerr.NewPatchError(docerr.PatchTypeMismatch, fullPath, "replacement value type does not match existing value")
			}
			v[tok] = value
			return v, nil
		}
		newChild, err := replaceAt(old, rest, value, fullPath)
		if err != nil {
			return nil, err
		}
		v[tok] = newChild
		return v, nil
	case []any:
		idx, ierr := jsonpointer.ArrayIndex(tok, len(v))
		if ierr != nil || idx < 0 || idx >= len(v) {
			return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "array index out of range")
		}
		if len(rest) == 0 {
			if typeMismatch(v[idx], value) {
				return nil, docerr.NewPatchError(docerr.PatchTypeMismatch, fullPath, "replacement value type does not match existing value")
			}
			v[idx] = value
			return v, nil
		}
		newChild, err := replaceAt(v[idx], rest, value, fullPath)
		if err != nil {
			return nil, err
		}
		v[idx] = newChild
		return v, nil
	default:
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "cannot descend into a scalar value")
	}
}

func applyAdd(tree any, path string, value any) (any, *docerr.PatchError) {
	tokens, terr := jsonpointer.Split(path)
	if terr != nil || len(tokens) == 0 {
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, path, "add requires a non-root path")
	}
	return addAt(tree, tokens, value, path)
}

func addAt(container any, tokens []string, value any, fullPath string) (any, *docerr.PatchError) {
	tok, rest := tokens[0], tokens[1:]
	switch v := container.(type) {
	case map[string]any:
		if len(rest) == 0 {
			v[tok] = value
			return v, nil
		}
		old, exists := v[tok]
		if !exists {
			return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "intermediate path segment does not exist")
		}
		newChild, err := addAt(old, rest, value, fullPath)
		if err != nil {
			return nil, err
		}
		v[tok] = newChild
		return v, nil
	case []any:
		idx, ierr := jsonpointer.ArrayIndex(tok, len(v))
		if ierr != nil {
			return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "invalid array index")
		}
		if len(rest) == 0 {
			if idx < 0 || idx > len(v) {
				return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "array index out of range")
			}
			out := make([]any, 0, len(v)+1)
			out = append(out, v[:idx]...)
			out = append(out, value)
			out = append(out, v[idx:]...)
			return out, nil
		}
		if idx < 0 || idx >= len(v) {
			return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "array index out of range")
		}
		newChild, err := addAt(v[idx], rest, value, fullPath)
		if err != nil {
			return nil, err
		}
		v[idx] = newChild
		return v, nil
	default:
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "cannot descend into a scalar value")
	}
}

func applyRemoveOp(tree any, path string) (any, *docerr.PatchError) {
	tokens, terr := jsonpointer.Split(path)
	if terr != nil || len(tokens) == 0 {
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, path, "remove requires a non-root path")
	}
	return removeAt(tree, tokens, path)
}

func removeAt(container any, tokens []string, fullPath string) (any, *docerr.PatchError) {
	tok, rest := tokens[0], tokens[1:]
	switch v := container.(type) {
	case map[string]any:
		old, exists := v[tok]
		if !exists {
			return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "no value at path")
		}
		if len(rest) == 0 {
			delete(v, tok)
			return v, nil
		}
		newChild, err := removeAt(old, rest, fullPath)
		if err != nil {
			return nil, err
		}
		v[tok] = newChild
		return v, nil
	case []any:
		idx, ierr := jsonpointer.ArrayIndex(tok, len(v))
		if ierr != nil || idx < 0 || idx >= len(v) {
			return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "array index out of range")
		}
		if len(rest) == 0 {
			out := make([]any, 0, len(v)-1)
			out = append(out, v[:idx]...)
			out = append(out, v[idx+1:]...)
			return out, nil
		}
		newChild, err := removeAt(v[idx], rest, fullPath)
		if err != nil {
			return nil, err
		}
		v[idx] = newChild
		return v, nil
	default:
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, fullPath, "cannot descend into a scalar value")
	}
}

// applyMove removes the value at from and adds it at to, against the same
// tree. Because both steps operate on one in-memory copy that is only ever
// returned to the caller on total success, a failing add after a successful
// remove simply discards the whole copy — the document the caller already
// holds is untouched, which is what makes move atomic per §4.3.
func applyMove(tree any, from, to string) (any, *docerr.PatchError) {
	fromTokens, ferr := jsonpointer.Split(from)
	if ferr != nil || len(fromTokens) == 0 {
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, from, "move requires a non-root source path")
	}
	value, gerr := jsonpointer.Get(tree, fromTokens)
	if gerr != nil {
		return nil, docerr.NewPatchError(docerr.PatchPathNotFound, from, gerr.Error())
	}

	afterRemove, rerr := removeAt(tree, fromTokens, from)
	if rerr != nil {
		return nil, rerr
	}
	return applyAdd(afterRemove, to, value)
}

// typeMismatch reports whether candidate's JSON shape differs from old's.
// candidate is normalized through the same marshal/unmarshal round trip as
// normalize() in access.go first, so a caller-supplied Go int (or any other
// value whose decoded JSON shape matches old) compares correctly against old,
// which is always already in its decoded-JSON form (e.g. float64, not int).
func typeMismatch(old, candidate any) bool {
	if old == nil {
		return false
	}
	if n, err := normalize(candidate); err == nil {
		candidate = n
	}
	switch old.(type) {
	case bool:
		_, ok := candidate.(bool)
		return !ok
	case float64:
		_, ok := candidate.(float64)
		return !ok
	case string:
		_, ok := candidate.(string)
		return !ok
	case map[string]any:
		_, ok := candidate.(map[string]any)
		return !ok
	case []any:
		_, ok := candidate.([]any)
		return !ok
	default:
		return false
	}
}
