package telemetry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed meta.schema.json
var metaSchemaJSON string

var (
	schemaPrinter = message.NewPrinter(language.English)
	metaSchema    = mustCompileSchema(metaSchemaJSON, "meta.schema.json")
)

func mustCompileSchema(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("parse embedded %s: %v", name, err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return sch
}

// SchemaError lists every schema violation found in a record.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "meta record does not match schema: " + strings.Join(e.Violations, "; ")
}

// ValidateRecord checks a serialised meta record against the embedded
// schema. Violations come back as a *SchemaError.
func ValidateRecord(data []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode meta record: %w", err)
	}
	err = metaSchema.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate meta record: %w", err)
	}
	var violations []string
	collectViolations(ve, &violations)
	return &SchemaError{Violations: violations}
}

func collectViolations(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, cause := range ve.Causes {
		collectViolations(cause, out)
	}
}
