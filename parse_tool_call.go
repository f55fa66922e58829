package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bitop-dev/ai-sdk-go/internal/schema"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

type ToolCallRepairOptions struct {
	ToolCall provider.ToolCall
	Tools    ToolSet
	// Err is either a *NoSuchToolError or an *InvalidToolInputError.
	Err      error
	Messages []Message
}

// ToolCallRepairFunc may return a corrected tool call. Returning nil (or an
// error) keeps the original parse error.
type ToolCallRepairFunc func(ctx context.Context, opts ToolCallRepairOptions) (*provider.ToolCall, error)

// ParseToolCall resolves a model tool call against tools, decodes its input
// and validates it against the tool's input schema.
func ParseToolCall(ctx context.Context, call provider.ToolCall, tools ToolSet, repair ToolCallRepairFunc, messages []Message) (ToolCall, error) {
	tc, err := parseToolCall(call, tools)
	if err == nil || repair == nil {
		return tc, err
	}
	if !IsNoSuchTool(err) && !IsInvalidToolInput(err) {
		return tc, err
	}

	repaired, rerr := repair(ctx, ToolCallRepairOptions{
		ToolCall: call,
		Tools:    tools,
		Err:      err,
		Messages: messages,
	})
	if rerr != nil || repaired == nil {
		return ToolCall{}, err
	}
	return parseToolCall(*repaired, tools)
}

func parseToolCall(call provider.ToolCall, tools ToolSet) (ToolCall, error) {
	tool, ok := tools[call.ToolName]
	if !ok {
		if call.ProviderExecuted {
			return ToolCall{
				ToolCallID:       call.ToolCallID,
				ToolName:         call.ToolName,
				Input:            looseInput(call.Input),
				ProviderExecuted: true,
				Dynamic:          true,
				ProviderMetadata: call.ProviderMetadata,
			}, nil
		}
		return ToolCall{}, &NoSuchToolError{ToolName: call.ToolName, AvailableTools: tools.Names()}
	}

	raw := strings.TrimSpace(call.Input)
	if raw == "" {
		raw = "{}"
	}
	var input any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return ToolCall{}, &InvalidToolInputError{
			ToolName:   call.ToolName,
			ToolCallID: call.ToolCallID,
			Input:      call.Input,
			Cause:      err,
		}
	}

	if err := schema.Validate(tool.InputSchema.JSON, input); err != nil {
		out := &InvalidToolInputError{
			ToolName:   call.ToolName,
			ToolCallID: call.ToolCallID,
			Input:      call.Input,
			Cause:      err,
		}
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			for _, is := range ve.Issues {
				out.Issues = append(out.Issues, SchemaIssue{Path: is.Path, Keyword: is.Keyword, Message: is.Message})
			}
		}
		return ToolCall{}, out
	}

	return ToolCall{
		ToolCallID:       call.ToolCallID,
		ToolName:         call.ToolName,
		Input:            input,
		ProviderExecuted: call.ProviderExecuted,
		Dynamic:          call.Dynamic || tool.kind() == ToolTypeDynamic,
		ProviderMetadata: call.ProviderMetadata,
	}, nil
}

// looseInput decodes JSON when possible and otherwise keeps the raw text.
func looseInput(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
