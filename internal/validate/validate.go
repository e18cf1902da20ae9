package validate

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentcore/agentcore/pkg/models"
)

// ValidateArguments checks synthesized or dispatched tool-call arguments
// against a Tool's declared Schema, compiling a JSON Schema document from
// the Tool's models.Schema on the fly. It is shared between the Planner
// (validating synthesized args before materializing a Task) and the
// Executor (validating args immediately before dispatch, per §4.3 step 2).
func ValidateArguments(tool models.Tool, args json.RawMessage) error {
	doc := schemaDocument(tool.Schema)

	compiler := jsonschema.NewCompiler()
	const resourceURL = "mem://tool-args.json"
	if err := compiler.AddResource(resourceURL, toReader(doc)); err != nil {
		return fmt.Errorf("validate: compiling schema for %s: %w", tool.Name, err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return fmt.Errorf("validate: compiling schema for %s: %w", tool.Name, err)
	}

	var value any
	if len(args) == 0 {
		value = map[string]any{}
	} else if err := json.Unmarshal(args, &value); err != nil {
		return &models.ToolError{Code: models.ToolErrBadArguments, ToolName: tool.Name, Message: "arguments are not valid JSON", Cause: err}
	}

	if err := compiled.Validate(value); err != nil {
		return &models.ToolError{Code: models.ToolErrBadArguments, ToolName: tool.Name, Message: "arguments do not conform to schema", Cause: err}
	}
	return nil
}

func schemaDocument(schema models.Schema) map[string]any {
	props := make(map[string]any, len(schema.Params))
	required := []string{}
	for _, p := range schema.Params {
		prop := map[string]any{"type": jsonSchemaType(p.Type)}
		if p.Type == models.ParamEnum && len(p.EnumValues) > 0 {
			prop["enum"] = p.EnumValues
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func jsonSchemaType(t models.ParamType) string {
	switch t {
	case models.ParamInteger:
		return "integer"
	case models.ParamBoolean:
		return "boolean"
	case models.ParamObject:
		return "object"
	case models.ParamArray:
		return "array"
	default:
		return "string"
	}
}

func toReader(doc map[string]any) *jsonDocReader {
	b, _ := json.Marshal(doc)
	return &jsonDocReader{data: b}
}

// jsonDocReader adapts an in-memory JSON document to io.Reader, since
// jsonschema.Compiler.AddResource takes a reader rather than a value.
type jsonDocReader struct {
	data []byte
	pos  int
}

func (r *jsonDocReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
