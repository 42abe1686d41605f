package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/contract-tracker/constants"
)

var (
	scheduleSchemaOnce sync.Once
	scheduleSchema     *jsonschema.Schema
	scheduleSchemaErr  error
)

const (
	formatPriority   = "task-priority"
	formatTaskStatus = "task-status"
)

// stringFormat adapts a string check to a jsonschema format; non-strings are
// left to the "type" keyword.
func stringFormat(ok func(string) bool) func(any) bool {
	return func(v any) bool {
		s, isString := v.(string)
		return !isString || ok(s)
	}
}

// CompileSchema compiles schemaMap with jsonschema. The task enum formats are
// asserted.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	compiler.Formats[formatPriority] = stringFormat(func(s string) bool {
		_, ok := constants.CanonicalizePriority(s)
		return ok
	})
	compiler.Formats[formatTaskStatus] = stringFormat(func(s string) bool {
		_, ok := constants.CanonicalizeTaskStatus(s)
		return ok
	})
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateScheduleJSON checks data against the compiled schedule contract.
func ValidateScheduleJSON(data []byte) error {
	scheduleSchemaOnce.Do(func() {
		scheduleSchema, scheduleSchemaErr = CompileSchema(BuildScheduleJSONSchema())
	})
	if scheduleSchemaErr != nil {
		return scheduleSchemaErr
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("unmarshal data: trailing content after JSON value")
	}
	if err := scheduleSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
