package validate

import (
	"encoding/json"
	"testing"

	"github.com/agentcore/agentcore/pkg/models"
)

func TestValidateArgumentsRejectsMissingRequired(t *testing.T) {
	tool := models.Tool{
		Name:   "read_file",
		Schema: models.Schema{Params: []models.Param{{Name: "path", Type: models.ParamString, Required: true}}},
	}
	if err := ValidateArguments(tool, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected validation error for missing required param")
	}
}

func TestValidateArgumentsAcceptsConformantInput(t *testing.T) {
	tool := models.Tool{
		Name:   "read_file",
		Schema: models.Schema{Params: []models.Param{{Name: "path", Type: models.ParamString, Required: true}}},
	}
	if err := ValidateArguments(tool, json.RawMessage(`{"path":"a.txt"}`)); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateArgumentsRejectsWrongType(t *testing.T) {
	tool := models.Tool{
		Name:   "write_file",
		Schema: models.Schema{Params: []models.Param{{Name: "recursive", Type: models.ParamBoolean}}},
	}
	if err := ValidateArguments(tool, json.RawMessage(`{"recursive":"yes"}`)); err == nil {
		t.Fatal("expected validation error for wrong type")
	}
}

func TestValidateArgumentsRejectsMalformedJSON(t *testing.T) {
	tool := models.Tool{Name: "read_file"}
	err := ValidateArguments(tool, json.RawMessage(`not json`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	var toolErr *models.ToolError
	if te, ok := err.(*models.ToolError); !ok {
		t.Fatalf("expected *models.ToolError, got %T", err)
	} else {
		toolErr = te
	}
	if toolErr.Code != models.ToolErrBadArguments {
		t.Fatalf("expected BadArguments, got %s", toolErr.Code)
	}
}

func TestValidateArgumentsEmptySchemaAcceptsEmptyArgs(t *testing.T) {
	tool := models.Tool{Name: "noop"}
	if err := ValidateArguments(tool, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
