package provider

import "encoding/json"

// Tool is a tool definition handed to a language model. It is either a
// FunctionTool or a ProviderDefinedTool.
type Tool interface {
	isTool()
	ToolName() string
}

type FunctionTool struct {
	Name        string
	Description string
	InputSchema json.RawMessage

	ProviderOptions ProviderOptions
}

func (FunctionTool) isTool()            {}
func (t FunctionTool) ToolName() string { return t.Name }

// ProviderDefinedTool is configured by the provider itself. ID is namespaced
// as "<provider>.<name>".
type ProviderDefinedTool struct {
	ID   string
	Name string
	Args map[string]any
}

func (ProviderDefinedTool) isTool()            {}
func (t ProviderDefinedTool) ToolName() string { return t.Name }

type ToolChoiceType string

const (
	ToolChoiceAuto     ToolChoiceType = "auto"
	ToolChoiceNone     ToolChoiceType = "none"
	ToolChoiceRequired ToolChoiceType = "required"
	ToolChoiceTool     ToolChoiceType = "tool"
)

type ToolChoice struct {
	Type ToolChoiceType
	// ToolName is set when Type is ToolChoiceTool.
	ToolName string
}
