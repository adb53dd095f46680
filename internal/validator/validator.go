// Package validator is the "contract guard" between the orchestrator
// and the JSON the runtime actually consumes: it compiles an embedded
// CUE schema once and validates the final document against it before
// the CLI writes it out, so a mismatch between §6's schema and what
// ProgramConverter actually produced fails loudly instead of shipping a
// document the runtime would silently misinterpret.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed output_schema.cue
var schemaFS embed.FS

// OutputValidator validates a bmv2 JSON document against output_schema.cue.
type OutputValidator struct {
	ctx    *cue.Context
	schema cue.Value
}

func NewOutputValidator() (*OutputValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("output_schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded output schema: %w", err)
	}
	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling output schema: %w", schema.Err())
	}
	return &OutputValidator{ctx: ctx, schema: schema}, nil
}

// Validate checks that data (typically a *document.Document) conforms
// to #Document in output_schema.cue.
func (v *OutputValidator) Validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling document to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

func (v *OutputValidator) ValidateJSON(jsonBytes []byte) error {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling document as CUE: %w", dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath("#Document"))
	if def.Err() != nil {
		return fmt.Errorf("looking up #Document definition: %w", def.Err())
	}

	unified := def.Unify(dataValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("output schema validation failed: %w", err)
	}
	return nil
}

// ValidationErrors returns every individual validation error, rather
// than the first wrapped error Validate returns, for diagnostic output.
func (v *OutputValidator) ValidationErrors(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return []string{fmt.Sprintf("compile error: %v", dataValue.Err())}
	}
	def := v.schema.LookupPath(cue.ParsePath("#Document"))
	unified := def.Unify(dataValue)
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}
