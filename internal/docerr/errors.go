// Package docerr defines the tagged error families the engine returns to its
// callers. Every family carries a stringly-typed Kind so UIs can key
// translations off it without parsing messages, and every family wraps its
// cause so callers can still errors.Is/errors.As through to the root fault.
package docerr

import (
	"errors"
	"fmt"
	"strings"
)

// base holds the fields shared by every tagged error family. It is not
// exported; each family embeds it and adds its own typed Kind.
type base struct {
	Op      string
	Message string
	Cause   error
}

func (b *base) errorString(tag string) string {
	op := strings.TrimSpace(b.Op)
	msg := strings.TrimSpace(b.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, tag)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, tag)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, tag)
	default:
		return tag
	}
}

func (b *base) Unwrap() error { return b.Cause }

// kindCarrier is implemented by every tagged error family: a pointer to the
// family's struct type, exposing its Kind field through ErrorKind so IsKind
// and KindOf can work across all four families without a type switch at each
// call site.
type kindCarrier[K comparable] interface {
	error
	ErrorKind() K
}

// IsKind reports whether err's chain contains a tagged error of family E
// whose Kind equals kind, e.g. IsKind[docerr.PatchKind, *docerr.PatchError].
func IsKind[K comparable, E kindCarrier[K]](err error, kind K) bool {
	var target E
	if !errors.As(err, &target) {
		return false
	}
	return target.ErrorKind() == kind
}

// KindOf returns the Kind of the first error in err's chain assignable to
// family E, and whether one was found.
func KindOf[K comparable, E kindCarrier[K]](err error) (K, bool) {
	var target E
	if !errors.As(err, &target) {
		var zero K
		return zero, false
	}
	return target.ErrorKind(), true
}

// ValidationKind enumerates the failure modes C1 (the document model and
// validator) can report.
type ValidationKind string

const (
	ValidationUnknownVariant    ValidationKind = "unknown-variant"
	ValidationDuplicateID       ValidationKind = "duplicate-id"
	ValidationNegativeDimension ValidationKind = "negative-dimension"
	ValidationMissingField      ValidationKind = "missing-field"
	ValidationUnsupportedSchema ValidationKind = "unsupported-schema"
	ValidationInvalidVariant    ValidationKind = "invalid-variant-nesting"
	ValidationCycle             ValidationKind = "cycle-detected"
	ValidationMalformedJSON     ValidationKind = "malformed-json"
)

// ValidationError is returned by parse and validate. Pointer is the JSON
// pointer of the first offending location, per §4.1.
type ValidationError struct {
	base
	Kind    ValidationKind
	Pointer string
}

func NewValidationError(kind ValidationKind, pointer, message string) *ValidationError {
	return &ValidationError{base: base{Message: message}, Kind: kind, Pointer: pointer}
}

func (e *ValidationError) ErrorKind() ValidationKind { return e.Kind }

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	tag := string(e.Kind)
	if e.Pointer != "" {
		tag = fmt.Sprintf("%s @ %s", tag, e.Pointer)
	}
	return e.errorString(tag)
}

// PatchKind enumerates the failure modes C3 (the patch engine) can report.
type PatchKind string

const (
	PatchPathNotFound       PatchKind = "path-not-found"
	PatchTypeMismatch       PatchKind = "type-mismatch"
	PatchInvariantViolation PatchKind = "invariant-violation"
	PatchUnknownOp          PatchKind = "unknown-op"
)

// PatchError is returned by Apply. Path is the JSON-pointer-like path that
// triggered the failure.
type PatchError struct {
	base
	Kind PatchKind
	Path string
}

func NewPatchError(kind PatchKind, path, message string) *PatchError {
	return &PatchError{base: base{Message: message}, Kind: kind, Path: path}
}

func WrapPatchError(kind PatchKind, path string, cause error) *PatchError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &PatchError{base: base{Message: msg, Cause: cause}, Kind: kind, Path: path}
}

func (e *PatchError) ErrorKind() PatchKind { return e.Kind }

func (e *PatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	tag := string(e.Kind)
	if e.Path != "" {
		tag = fmt.Sprintf("%s @ %s", tag, e.Path)
	}
	return e.errorString(tag)
}

// StoreKind enumerates the failure modes C4 (the document store) can report.
type StoreKind string

const (
	StoreNoDocumentLoaded StoreKind = "no-document-loaded"
	StoreNodeNotFound     StoreKind = "node-not-found"
	StorePatchFailed      StoreKind = "patch-failed"
	StoreNothingToUndo    StoreKind = "nothing-to-undo"
	StoreNothingToRedo    StoreKind = "nothing-to-redo"
	StoreNoPersistencePath StoreKind = "no-persistence-path"
)

// StoreError is returned by the document store. PatchFailed wraps the inner
// *PatchError as Cause per §7.
type StoreError struct {
	base
	Kind   StoreKind
	Detail string
}

func NewStoreError(kind StoreKind, op, detail string) *StoreError {
	return &StoreError{base: base{Op: op}, Kind: kind, Detail: detail}
}

func WrapStoreError(kind StoreKind, op string, cause error) *StoreError {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &StoreError{base: base{Op: op, Cause: cause}, Kind: kind, Detail: detail}
}

func (e *StoreError) ErrorKind() StoreKind { return e.Kind }

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	tag := string(e.Kind)
	if e.Detail != "" {
		tag = fmt.Sprintf("%s: %s", tag, e.Detail)
	}
	return e.errorString(tag)
}

// MergeKind enumerates the failure modes C5 (three-way merge) can report.
type MergeKind string

const (
	MergeInvalidInput MergeKind = "invalid-input"
	MergeInternal     MergeKind = "merge-internal"
	MergeTimeout      MergeKind = "merge-timeout"
	MergeCancelled    MergeKind = "cancelled"
)

// MergeError is returned by Merge.
type MergeError struct {
	base
	Kind   MergeKind
	Detail string
}

func NewMergeError(kind MergeKind, op, detail string) *MergeError {
	return &MergeError{base: base{Op: op}, Kind: kind, Detail: detail}
}

func WrapMergeError(kind MergeKind, op string, cause error) *MergeError {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &MergeError{base: base{Op: op, Cause: cause}, Kind: kind, Detail: detail}
}

func (e *MergeError) ErrorKind() MergeKind { return e.Kind }

func (e *MergeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	tag := string(e.Kind)
	if e.Detail != "" {
		tag = fmt.Sprintf("%s: %s", tag, e.Detail)
	}
	return e.errorString(tag)
}
