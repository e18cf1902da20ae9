package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"

	"github.com/agentcore/agentcore/internal/executor"
	"github.com/agentcore/agentcore/internal/registry"
	"github.com/agentcore/agentcore/pkg/models"
)

// registerBuiltinTools wires a minimal demo tool set into reg/ex so the
// CLI has something to plan against out of the box. Full tool
// implementations (bash, file, web, git, grep, edit, ls, memory) are an
// external collaborator per SPEC_FULL.md's Non-goals; these three exist
// only to exercise the registry/approval/executor contract end to end.
func registerBuiltinTools(reg *registry.Registry, ex *executor.Executor, workingDir string) error {
	tools := []models.Tool{
		{
			Name:         "read_file",
			Description:  "Read the contents of a file relative to the working directory.",
			Capabilities: models.NewCapabilitySet(models.CapReadsFS),
			Schema: models.Schema{Params: []models.Param{
				{Name: "path", Type: models.ParamString, Required: true, Description: "File path, relative to the working directory."},
			}},
			TimeoutClass: models.TimeoutClassFile,
		},
		{
			Name:         "write_file",
			Description:  "Write content to a file relative to the working directory, creating parent directories as needed.",
			Capabilities: models.NewCapabilitySet(models.CapWritesFS),
			Schema: models.Schema{Params: []models.Param{
				{Name: "path", Type: models.ParamString, Required: true, Description: "File path, relative to the working directory."},
				{Name: "content", Type: models.ParamString, Required: true, Description: "Content to write."},
			}},
			TimeoutClass: models.TimeoutClassFile,
		},
		{
			Name:         "run_shell",
			Description:  "Run a shell command in the working directory and capture its combined output.",
			Capabilities: models.NewCapabilitySet(models.CapExecutesShell),
			Schema: models.Schema{Params: []models.Param{
				{Name: "command", Type: models.ParamString, Required: true, Description: "Command to run via sh -c."},
			}},
			TimeoutClass: models.TimeoutClassShell,
		},
	}

	for _, tool := range tools {
		if err := reg.Register(tool); err != nil {
			return fmt.Errorf("register builtin tool %q: %w", tool.Name, err)
		}
	}

	ex.RegisterHandler("read_file", executor.HandlerFunc(func(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error) {
		var params struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return failResult(models.ToolErrBadArguments, "read_file", "malformed arguments"), nil
		}
		data, err := os.ReadFile(resolvePath(workingDir, params.Path))
		if err != nil {
			return failResult(models.ToolErrRuntime, "read_file", err.Error()), nil
		}
		out, _ := json.Marshal(string(data))
		return &models.ToolResult{Success: true, Output: out}, nil
	}))

	ex.RegisterHandler("write_file", executor.HandlerFunc(func(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error) {
		var params struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return failResult(models.ToolErrBadArguments, "write_file", "malformed arguments"), nil
		}
		full := resolvePath(workingDir, params.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return failResult(models.ToolErrRuntime, "write_file", err.Error()), nil
		}
		if err := os.WriteFile(full, []byte(params.Content), 0o644); err != nil {
			return failResult(models.ToolErrRuntime, "write_file", err.Error()), nil
		}
		out, _ := json.Marshal(fmt.Sprintf("wrote %d bytes to %s", len(params.Content), params.Path))
		return &models.ToolResult{Success: true, Output: out}, nil
	}))

	ex.RegisterHandler("run_shell", executor.HandlerFunc(func(ctx context.Context, args json.RawMessage, previous map[string]any) (*models.ToolResult, error) {
		var params struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return failResult(models.ToolErrBadArguments, "run_shell", "malformed arguments"), nil
		}
		cmd := osexec.CommandContext(ctx, "sh", "-c", params.Command)
		cmd.Dir = workingDir
		output, err := cmd.CombinedOutput()
		if err != nil {
			if ctx.Err() != nil {
				return failResult(models.ToolErrTimeout, "run_shell", ctx.Err().Error()), nil
			}
			return failResult(models.ToolErrRuntime, "run_shell", fmt.Sprintf("%v: %s", err, output)), nil
		}
		out, _ := json.Marshal(string(output))
		return &models.ToolResult{Success: true, Output: out}, nil
	}))

	return nil
}

func resolvePath(workingDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workingDir, path)
}

func failResult(code models.ToolErrorCode, toolName, message string) *models.ToolResult {
	return &models.ToolResult{
		Success:  false,
		Error:    &models.ToolError{Code: code, ToolName: toolName, Message: message},
		ErrorMsg: message,
	}
}
