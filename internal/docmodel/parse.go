package docmodel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/caravel-design/docengine/internal/docerr"
)

// Parse decodes a UTF-8 JSON byte sequence into a Document. It is
// all-or-nothing: on any schema violation it returns a single
// *docerr.ValidationError naming the first offending location and no
// partial document, per §4.1.
func Parse(data []byte) (*Document, *docerr.ValidationError) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, docerr.NewValidationError(docerr.ValidationMalformedJSON, "", fmt.Sprintf("malformed document: %v", err))
	}
	if dec.More() {
		return nil, docerr.NewValidationError(docerr.ValidationMalformedJSON, "", "trailing data after document")
	}

	if errs := Validate(&doc); len(errs) > 0 {
		return nil, errs[0]
	}
	return &doc, nil
}
