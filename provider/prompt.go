package provider

import "encoding/json"

// Prompt is the provider-level conversation: a flat list of messages that has
// already been standardized and lowered by the SDK.
type Prompt []Message

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one provider-level message. System messages carry their text in
// System; every other role uses Content.
type Message struct {
	Role    Role
	System  string
	Content []Part

	ProviderOptions ProviderOptions
}

// Part is a provider-level message part.
type Part interface {
	isPart()
}

type TextPart struct {
	Text string

	ProviderOptions ProviderOptions
}

func (TextPart) isPart() {}

type ReasoningPart struct {
	Text string

	ProviderOptions ProviderOptions
}

func (ReasoningPart) isPart() {}

// DataContent is either inline base64 data or a URL the provider may fetch.
type DataContent struct {
	Base64 string
	URL    string
}

func (d DataContent) IsURL() bool { return d.URL != "" }

type FilePart struct {
	Filename  string
	Data      DataContent
	MediaType string

	ProviderOptions ProviderOptions
}

func (FilePart) isPart() {}

type ToolCallPart struct {
	ToolCallID       string
	ToolName         string
	Input            json.RawMessage
	ProviderExecuted bool

	ProviderOptions ProviderOptions
}

func (ToolCallPart) isPart() {}

type ToolResultPart struct {
	ToolCallID string
	ToolName   string
	Output     ToolResultOutput

	ProviderOptions ProviderOptions
}

func (ToolResultPart) isPart() {}

// ToolResultOutput is the provider-level form of a tool result.
type ToolResultOutput interface {
	isToolResultOutput()
}

type TextOutput struct{ Value string }

func (TextOutput) isToolResultOutput() {}

type JSONOutput struct{ Value any }

func (JSONOutput) isToolResultOutput() {}

type ErrorTextOutput struct{ Value string }

func (ErrorTextOutput) isToolResultOutput() {}

type ErrorJSONOutput struct{ Value any }

func (ErrorJSONOutput) isToolResultOutput() {}

type ContentOutput struct{ Items []ContentItem }

func (ContentOutput) isToolResultOutput() {}

// ContentItem is an entry of ContentOutput: TextItem or MediaItem.
type ContentItem interface {
	isContentItem()
}

type TextItem struct{ Text string }

func (TextItem) isContentItem() {}

type MediaItem struct {
	Data      string
	MediaType string
}

func (MediaItem) isContentItem() {}
