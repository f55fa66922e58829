package ai

import (
	"fmt"
	"strings"
)

// ValidateAndStandardize checks a prompt and returns it in message form: a
// Text prompt becomes a single user message and System is lifted into a
// system message at position 0. Standardized prompts pass through unchanged.
func ValidateAndStandardize(p Prompt) (Prompt, error) {
	if p.Text != "" && len(p.Messages) > 0 {
		return Prompt{}, &InvalidPromptError{Message: "text and messages cannot both be set"}
	}

	var msgs []Message
	if p.Text != "" {
		msgs = []Message{UserText(p.Text)}
	} else {
		msgs = append([]Message(nil), p.Messages...)
	}
	if len(msgs) == 0 {
		return Prompt{}, &InvalidPromptError{Message: "messages must not be empty"}
	}

	if p.System != "" {
		if msgs[0].Role == RoleSystem {
			return Prompt{}, &InvalidPromptError{Message: "system is set and messages already start with a system message"}
		}
		msgs = append([]Message{SystemMessage(p.System)}, msgs...)
	}

	if err := validateMessages(msgs); err != nil {
		return Prompt{}, err
	}
	return Prompt{Messages: msgs}, nil
}

func validateMessages(msgs []Message) error {
	toolCalls := map[string]bool{}
	approvals := map[string]bool{}

	for i, m := range msgs {
		switch m.Role {
		case RoleSystem:
			if i != 0 {
				return &InvalidPromptError{Message: fmt.Sprintf("message %d: system message must be first", i)}
			}
		case RoleUser, RoleAssistant:
		case RoleTool:
			if i == 0 || (msgs[i-1].Role != RoleAssistant && msgs[i-1].Role != RoleTool) {
				return &InvalidPromptError{Message: fmt.Sprintf("message %d: tool message must follow an assistant message", i)}
			}
		default:
			return &InvalidPromptError{Message: fmt.Sprintf("message %d: unknown role %q", i, m.Role)}
		}

		for j, part := range m.Content {
			if !roleAccepts(m.Role, part) {
				return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: %T is not allowed in a %s message", i, j, part, m.Role)}
			}
			switch p := part.(type) {
			case ImagePart:
				if p.Image.isEmpty() {
					return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: image data is empty", i, j)}
				}
			case FilePart:
				if p.Data.isEmpty() {
					return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: file data is empty", i, j)}
				}
				if strings.TrimSpace(p.MediaType) == "" {
					return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: file media type is required", i, j)}
				}
			case ToolCallPart:
				if p.ToolCallID == "" {
					return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: tool call id is required", i, j)}
				}
				toolCalls[p.ToolCallID] = true
			case ToolApprovalRequestPart:
				approvals[p.ApprovalID] = true
			case ToolResultPart:
				if !toolCalls[p.ToolCallID] {
					return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: tool result %q has no matching tool call", i, j, p.ToolCallID)}
				}
				if p.Output == nil {
					return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: tool result output is required", i, j)}
				}
			case ToolApprovalResponsePart:
				if !approvals[p.ApprovalID] {
					return &InvalidPromptError{Message: fmt.Sprintf("message %d part %d: approval response %q has no matching request", i, j, p.ApprovalID)}
				}
			}
		}
	}
	return nil
}

func roleAccepts(role Role, part Part) bool {
	switch part.(type) {
	case TextPart:
		return role != RoleTool
	case ImagePart:
		return role == RoleUser
	case FilePart:
		return role == RoleUser || role == RoleAssistant
	case ReasoningPart, ToolCallPart, ToolApprovalRequestPart:
		return role == RoleAssistant
	case ToolResultPart:
		return role == RoleAssistant || role == RoleTool
	case ToolApprovalResponsePart:
		return role == RoleTool
	}
	return false
}
