// Package validator is the contract guard between the declaration parser and
// the compliance core. Parsed design files are validated against a CUE
// schema before anything consumes them: if the parser ever emits a shape the
// rest of the tool does not expect, the mismatch surfaces here as an
// immediate error instead of a silent mis-diagnosis later.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaFS embed.FS

// Validator validates parsed design files against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a Validator with the embedded design-file schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{ctx: ctx, schema: schema}, nil
}

// Validate checks that a parsed design file conforms to the #DesignFile
// definition. Returns nil if valid, or an error explaining what failed.
func (v *Validator) Validate(design interface{}) error {
	jsonBytes, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("marshaling design file to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates JSON bytes directly against #DesignFile.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath("#DesignFile"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #DesignFile definition: %w", def.Err())
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// ValidationErrors returns every individual validation error for a design
// file, or nil when it validates.
func (v *Validator) ValidationErrors(design interface{}) []string {
	jsonBytes, err := json.Marshal(design)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}

	def := v.schema.LookupPath(cue.ParsePath("#DesignFile"))
	if def.Err() != nil {
		return []string{fmt.Sprintf("schema lookup error: %v", def.Err())}
	}

	unified := def.Unify(dataValue)
	err = unified.Validate()
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}
