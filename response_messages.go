package ai

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

// toResponseMessages turns step content into the assistant message and, when
// client tools produced output, the tool message that follows it.
func toResponseMessages(content []Content, tools ToolSet) []Message {
	var assistant, tool []Part

	for _, c := range content {
		switch v := c.(type) {
		case TextContent:
			if v.Text == "" {
				continue
			}
			assistant = append(assistant, TextPart{Text: v.Text})
		case ReasoningContent:
			assistant = append(assistant, ReasoningPart{Text: v.Text})
		case FileContent:
			assistant = append(assistant, FilePart{Data: v.File.Data, MediaType: v.File.MediaType})
		case ToolCall:
			assistant = append(assistant, ToolCallPart{
				ToolCallID:       v.ToolCallID,
				ToolName:         v.ToolName,
				Input:            v.Input,
				ProviderExecuted: v.ProviderExecuted,
			})
		case ToolApprovalRequest:
			assistant = append(assistant, ToolApprovalRequestPart{ApprovalID: v.ApprovalID, ToolCallID: v.ToolCall.ToolCallID})
		case ToolResult:
			if v.Preliminary {
				continue
			}
			part := ToolResultPart{
				ToolCallID: v.ToolCallID,
				ToolName:   v.ToolName,
				Output:     tools[v.ToolName].modelOutput(v.Output),
			}
			if v.ProviderExecuted {
				assistant = append(assistant, part)
			} else {
				tool = append(tool, part)
			}
		case ToolError:
			part := ToolResultPart{
				ToolCallID: v.ToolCallID,
				ToolName:   v.ToolName,
				Output:     OutputErrorText{Value: toolErrorText(v.Err)},
			}
			if v.ProviderExecuted {
				assistant = append(assistant, part)
			} else {
				tool = append(tool, part)
			}
		case ToolOutputDenied:
			tool = append(tool, ToolResultPart{
				ToolCallID: v.ToolCallID,
				ToolName:   v.ToolName,
				Output:     OutputExecutionDenied{Reason: v.Reason},
			})
		}
	}

	var out []Message
	if len(assistant) > 0 {
		out = append(out, AssistantMessage(assistant...))
	}
	if len(tool) > 0 {
		out = append(out, ToolMessage(tool...))
	}
	return out
}

func toolErrorText(err error) string {
	if err == nil {
		return ""
	}
	var te *ToolExecutionError
	if errors.As(err, &te) && te.Cause != nil {
		return te.Cause.Error()
	}
	return err.Error()
}

const emptyObjectSchema = `{"type":"object","properties":{}}`

// prepareTools lowers the active tools into provider definitions, sorted by
// name. A nil active list keeps every tool.
func prepareTools(tools ToolSet, active []string) (ToolSet, []provider.Tool) {
	if len(tools) == 0 {
		return nil, nil
	}
	selected := tools
	if active != nil {
		selected = make(ToolSet, len(active))
		for _, name := range active {
			if t, ok := tools[name]; ok {
				selected[name] = t
			}
		}
	}

	names := make([]string, 0, len(selected))
	for n := range selected {
		names = append(names, n)
	}
	sort.Strings(names)

	defs := make([]provider.Tool, 0, len(names))
	for _, name := range names {
		t := selected[name]
		if t.kind() == ToolTypeProviderDefined {
			defs = append(defs, provider.ProviderDefinedTool{ID: t.ID, Name: name, Args: t.Args})
			continue
		}
		schema := t.InputSchema.JSON
		if len(schema) == 0 {
			schema = json.RawMessage(emptyObjectSchema)
		}
		defs = append(defs, provider.FunctionTool{Name: name, Description: t.Description, InputSchema: schema})
	}
	return selected, defs
}
