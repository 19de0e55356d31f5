package docmodel

import (
	"fmt"

	"github.com/caravel-design/docengine/internal/docerr"
)

// Validate walks doc and returns every invariant violation found, per §3 and
// §4.1. It never mutates doc and never short-circuits on the first error —
// that behavior belongs to Parse, which is all-or-nothing by contract.
func Validate(doc *Document) []*docerr.ValidationError {
	if doc == nil {
		return []*docerr.ValidationError{docerr.NewValidationError(docerr.ValidationMissingField, "", "document is nil")}
	}

	var errs []*docerr.ValidationError
	ids := make(map[string][]string) // id -> pointers where seen

	if doc.SchemaVersion == "" {
		errs = append(errs, docerr.NewValidationError(docerr.ValidationMissingField, "/schemaVersion", "schemaVersion is required"))
	} else if doc.SchemaVersion != SupportedSchemaVersion {
		errs = append(errs, docerr.NewValidationError(docerr.ValidationUnsupportedSchema, "/schemaVersion", fmt.Sprintf("unsupported schema version %q", doc.SchemaVersion)))
	}
	if doc.ID == "" {
		errs = append(errs, docerr.NewValidationError(docerr.ValidationMissingField, "/id", "document id is required"))
	}

	for ai, ab := range doc.Artboards {
		abPointer := fmt.Sprintf("/artboards/%d", ai)
		if ab == nil {
			errs = append(errs, docerr.NewValidationError(docerr.ValidationMissingField, abPointer, "artboard is nil"))
			continue
		}
		if ab.ID == "" {
			errs = append(errs, docerr.NewValidationError(docerr.ValidationMissingField, abPointer+"/id", "artboard id is required"))
		} else {
			ids[ab.ID] = append(ids[ab.ID], abPointer)
		}
		if ab.Frame.Width < 0 || ab.Frame.Height < 0 {
			errs = append(errs, docerr.NewValidationError(docerr.ValidationNegativeDimension, abPointer+"/frame", "artboard frame dimensions must be non-negative"))
		}
		visited := make(map[*Node]bool)
		for ci, child := range ab.Children {
			errs = append(errs, validateNode(child, fmt.Sprintf("%s/children/%d", abPointer, ci), ids, visited)...)
		}
	}

	for id, pointers := range ids {
		if len(pointers) > 1 {
			for _, p := range pointers {
				errs = append(errs, docerr.NewValidationError(docerr.ValidationDuplicateID, p, fmt.Sprintf("duplicate id %q", id)))
			}
		}
	}

	return errs
}

func validateNode(n *Node, pointer string, ids map[string][]string, visited map[*Node]bool) []*docerr.ValidationError {
	var errs []*docerr.ValidationError
	if n == nil {
		return append(errs, docerr.NewValidationError(docerr.ValidationMissingField, pointer, "node is nil"))
	}
	if visited[n] {
		return append(errs, docerr.NewValidationError(docerr.ValidationCycle, pointer, "node pointer appears more than once in the tree"))
	}
	visited[n] = true

	if n.ID == "" {
		errs = append(errs, docerr.NewValidationError(docerr.ValidationMissingField, pointer+"/id", "node id is required"))
	} else {
		ids[n.ID] = append(ids[n.ID], pointer)
	}

	switch n.Kind {
	case KindFrame, KindText, KindComponent:
		// known variant
	default:
		errs = append(errs, docerr.NewValidationError(docerr.ValidationUnknownVariant, pointer+"/type", fmt.Sprintf("unknown node type %q", n.Kind)))
	}

	if n.Frame.Width < 0 || n.Frame.Height < 0 {
		errs = append(errs, docerr.NewValidationError(docerr.ValidationNegativeDimension, pointer+"/frame", "node frame dimensions must be non-negative"))
	}

	switch n.Kind {
	case KindComponent:
		if n.ComponentKey == "" {
			errs = append(errs, docerr.NewValidationError(docerr.ValidationMissingField, pointer+"/componentKey", "componentKey is required on a component node"))
		}
		if len(n.Children) > 0 {
			errs = append(errs, docerr.NewValidationError(docerr.ValidationInvalidVariant, pointer+"/children", "component nodes cannot carry children"))
		}
	case KindText:
		if len(n.Children) > 0 {
			errs = append(errs, docerr.NewValidationError(docerr.ValidationInvalidVariant, pointer+"/children", "text nodes cannot carry children"))
		}
	case KindFrame:
		for ci, child := range n.Children {
			errs = append(errs, validateNode(child, fmt.Sprintf("%s/children/%d", pointer, ci), ids, visited)...)
		}
	}

	return errs
}

// Ok reports whether a validation pass found no violations.
func Ok(errs []*docerr.ValidationError) bool { return len(errs) == 0 }
