package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitop-dev/ai-sdk-go/internal/images"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

// ConvertToLanguageModelPrompt lowers a standardized prompt into provider
// messages. Consecutive tool messages are merged into one.
func ConvertToLanguageModelPrompt(p Prompt) (provider.Prompt, error) {
	out := make(provider.Prompt, 0, len(p.Messages)+1)
	if p.System != "" {
		out = append(out, provider.Message{Role: provider.RoleSystem, System: p.System})
	}
	for i, m := range p.Messages {
		pm, err := convertMessage(m)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, pm)
	}
	return combineToolMessages(out), nil
}

func convertMessage(m Message) (provider.Message, error) {
	pm := provider.Message{Role: provider.Role(m.Role), ProviderOptions: m.ProviderOptions}

	switch m.Role {
	case RoleSystem:
		var b strings.Builder
		for _, part := range m.Content {
			if t, ok := part.(TextPart); ok {
				b.WriteString(t.Text)
			}
		}
		pm.System = b.String()
		return pm, nil

	case RoleUser:
		for _, part := range m.Content {
			switch p := part.(type) {
			case TextPart:
				if p.Text == "" {
					continue
				}
				pm.Content = append(pm.Content, provider.TextPart{Text: p.Text, ProviderOptions: p.ProviderOptions})
			case ImagePart:
				pm.Content = append(pm.Content, provider.FilePart{
					Data:            lowerData(p.Image),
					MediaType:       imageMediaType(p),
					ProviderOptions: p.ProviderOptions,
				})
			case FilePart:
				pm.Content = append(pm.Content, lowerFile(p))
			default:
				return pm, &InvalidPromptError{Message: fmt.Sprintf("unsupported user part %T", part)}
			}
		}
		return pm, nil

	case RoleAssistant:
		for _, part := range m.Content {
			switch p := part.(type) {
			case TextPart:
				if p.Text == "" && len(p.ProviderOptions) == 0 {
					continue
				}
				pm.Content = append(pm.Content, provider.TextPart{Text: p.Text, ProviderOptions: p.ProviderOptions})
			case ReasoningPart:
				pm.Content = append(pm.Content, provider.ReasoningPart{Text: p.Text, ProviderOptions: p.ProviderOptions})
			case FilePart:
				pm.Content = append(pm.Content, lowerFile(p))
			case ToolCallPart:
				input, err := marshalInput(p.Input)
				if err != nil {
					return pm, &InvalidPromptError{Message: "tool call " + p.ToolCallID, Cause: err}
				}
				pm.Content = append(pm.Content, provider.ToolCallPart{
					ToolCallID:       p.ToolCallID,
					ToolName:         p.ToolName,
					Input:            input,
					ProviderExecuted: p.ProviderExecuted,
					ProviderOptions:  p.ProviderOptions,
				})
			case ToolResultPart:
				pm.Content = append(pm.Content, lowerToolResult(p))
			case ToolApprovalRequestPart:
			default:
				return pm, &InvalidPromptError{Message: fmt.Sprintf("unsupported assistant part %T", part)}
			}
		}
		return pm, nil

	case RoleTool:
		for _, part := range m.Content {
			if p, ok := part.(ToolResultPart); ok {
				pm.Content = append(pm.Content, lowerToolResult(p))
			}
		}
		return pm, nil
	}
	return pm, &InvalidPromptError{Message: fmt.Sprintf("unknown role %q", m.Role)}
}

func lowerData(d DataContent) provider.DataContent {
	if d.IsURL() {
		return provider.DataContent{URL: d.URL}
	}
	return provider.DataContent{Base64: d.Base64String()}
}

func lowerFile(p FilePart) provider.FilePart {
	return provider.FilePart{
		Filename:        p.Filename,
		Data:            lowerData(p.Data),
		MediaType:       p.MediaType,
		ProviderOptions: p.ProviderOptions,
	}
}

func imageMediaType(p ImagePart) string {
	if p.MediaType != "" {
		return p.MediaType
	}
	var detected string
	switch {
	case len(p.Image.Bytes) > 0:
		detected = images.DetectMediaType(p.Image.Bytes)
	case p.Image.Base64 != "":
		detected = images.DetectBase64MediaType(p.Image.Base64)
	}
	if detected != "" {
		return detected
	}
	return "image/*"
}

func marshalInput(v any) (json.RawMessage, error) {
	switch in := v.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		return in, nil
	case string:
		if json.Valid([]byte(in)) {
			return json.RawMessage(in), nil
		}
	}
	return json.Marshal(v)
}

func lowerToolResult(p ToolResultPart) provider.ToolResultPart {
	return provider.ToolResultPart{
		ToolCallID:      p.ToolCallID,
		ToolName:        p.ToolName,
		Output:          lowerOutput(p.Output),
		ProviderOptions: p.ProviderOptions,
	}
}

func lowerOutput(o ToolResultOutput) provider.ToolResultOutput {
	switch v := o.(type) {
	case OutputText:
		return provider.TextOutput{Value: v.Value}
	case OutputJSON:
		return provider.JSONOutput{Value: v.Value}
	case OutputErrorText:
		return provider.ErrorTextOutput{Value: v.Value}
	case OutputErrorJSON:
		return provider.ErrorJSONOutput{Value: v.Value}
	case OutputExecutionDenied:
		reason := v.Reason
		if reason == "" {
			reason = "No reason provided"
		}
		return provider.ErrorTextOutput{Value: "Execution denied: " + reason}
	case OutputContent:
		items := make([]provider.ContentItem, 0, len(v.Items))
		for _, it := range v.Items {
			switch c := it.(type) {
			case ContentText:
				items = append(items, provider.TextItem{Text: c.Text})
			case ContentMedia:
				items = append(items, provider.MediaItem{Data: c.Data, MediaType: c.MediaType})
			}
			// File ids and URLs cannot be encoded for providers and are dropped.
		}
		return provider.ContentOutput{Items: items}
	}
	return provider.JSONOutput{Value: nil}
}

func combineToolMessages(msgs provider.Prompt) provider.Prompt {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.Role == provider.RoleTool && len(out) > 0 && out[len(out)-1].Role == provider.RoleTool {
			last := &out[len(out)-1]
			last.Content = append(last.Content, m.Content...)
			continue
		}
		out = append(out, m)
	}
	return out
}
