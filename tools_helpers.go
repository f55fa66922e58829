package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
)

type ToolSpec[Input any, Output any] struct {
	Description string
	InputSchema Schema

	Execute       func(ctx context.Context, input Input, opts ToolExecuteOptions) (Output, error)
	ExecuteStream func(ctx context.Context, input Input, opts ToolExecuteOptions) iter.Seq2[Output, error]

	NeedsApproval NeedsApproval
	Sequential    bool
	ToModelOutput func(output Output) ToolResultOutput
}

// NewTool creates a function tool with typed input/output. Input is decoded
// from the parsed tool call, which has already been validated against
// InputSchema.
func NewTool[Input any, Output any](spec ToolSpec[Input, Output]) Tool {
	if spec.Execute == nil && spec.ExecuteStream == nil {
		panic("tool Execute or ExecuteStream is required")
	}
	t := Tool{
		Type:          ToolTypeFunction,
		Description:   spec.Description,
		InputSchema:   spec.InputSchema,
		NeedsApproval: spec.NeedsApproval,
		Sequential:    spec.Sequential,
	}
	if spec.Execute != nil {
		t.Execute = func(ctx context.Context, input any, opts ToolExecuteOptions) (any, error) {
			in, err := decodeToolInput[Input](input)
			if err != nil {
				return nil, err
			}
			return spec.Execute(ctx, in, opts)
		}
	}
	if spec.ExecuteStream != nil {
		t.ExecuteStream = func(ctx context.Context, input any, opts ToolExecuteOptions) iter.Seq2[any, error] {
			return func(yield func(any, error) bool) {
				in, err := decodeToolInput[Input](input)
				if err != nil {
					yield(nil, err)
					return
				}
				for v, err := range spec.ExecuteStream(ctx, in, opts) {
					if !yield(v, err) {
						return
					}
					if err != nil {
						return
					}
				}
			}
		}
	}
	if spec.ToModelOutput != nil {
		t.ToModelOutput = func(output any) ToolResultOutput {
			typed, ok := output.(Output)
			if !ok {
				return outputFromValue(output)
			}
			return spec.ToModelOutput(typed)
		}
	}
	return t
}

func decodeToolInput[Input any](input any) (Input, error) {
	var v Input
	if typed, ok := input.(Input); ok {
		return typed, nil
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return v, fmt.Errorf("encode tool input: %w", err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode tool input: %w", err)
	}
	return v, nil
}

type DynamicToolSpec struct {
	Description   string
	InputSchema   Schema
	Execute       ToolExecuteFunc
	NeedsApproval NeedsApproval
}

// NewDynamicTool creates a tool whose input and output are plain JSON values
// (map[string]any, []any, string, float64, bool, nil).
func NewDynamicTool(spec DynamicToolSpec) Tool {
	if spec.Execute == nil {
		panic("dynamic tool Execute is required")
	}
	return Tool{
		Type:          ToolTypeDynamic,
		Description:   spec.Description,
		InputSchema:   spec.InputSchema,
		Execute:       spec.Execute,
		NeedsApproval: spec.NeedsApproval,
	}
}

// NewProviderDefinedTool declares a tool implemented by the provider. id must
// look like "<provider>.<name>".
func NewProviderDefinedTool(id string, args map[string]any) Tool {
	provider, name, ok := strings.Cut(id, ".")
	if !ok || provider == "" || name == "" {
		panic(fmt.Sprintf("provider-defined tool id %q must be <provider>.<name>", id))
	}
	return Tool{
		Type: ToolTypeProviderDefined,
		ID:   id,
		Args: args,
	}
}
