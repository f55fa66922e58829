package ai

import (
	"encoding/base64"
	"fmt"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

type ProviderOptions = provider.ProviderOptions

type ProviderMetadata = provider.Metadata

// Prompt is either a plain Text or a list of Messages, plus an optional
// System instruction.
type Prompt struct {
	System   string
	Text     string
	Messages []Message
}

func TextPrompt(text string) Prompt { return Prompt{Text: text} }

func MessagesPrompt(msgs ...Message) Prompt {
	return Prompt{Messages: append([]Message(nil), msgs...)}
}

func (p Prompt) WithSystem(system string) Prompt {
	p.System = system
	return p
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role    Role
	Content []Part

	ProviderOptions ProviderOptions
}

// Part is a message content part. The set of parts a role accepts is checked
// by ValidateAndStandardize.
type Part interface {
	isPart()
}

type TextPart struct {
	Text string

	ProviderOptions ProviderOptions
}

func (TextPart) isPart() {}

// ImagePart is a user image. MediaType is optional and detected from the
// data when missing.
type ImagePart struct {
	Image     DataContent
	MediaType string

	ProviderOptions ProviderOptions
}

func (ImagePart) isPart() {}

type FilePart struct {
	Data      DataContent
	MediaType string
	Filename  string

	ProviderOptions ProviderOptions
}

func (FilePart) isPart() {}

type ReasoningPart struct {
	Text string

	ProviderOptions ProviderOptions
}

func (ReasoningPart) isPart() {}

// ToolCallPart records a model tool call in an assistant message. Input is
// any JSON-serializable value.
type ToolCallPart struct {
	ToolCallID       string
	ToolName         string
	Input            any
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

// ToolApprovalRequestPart appears in assistant messages when a tool call is
// waiting for approval. It is never sent to providers.
type ToolApprovalRequestPart struct {
	ApprovalID string
	ToolCallID string
}

func (ToolApprovalRequestPart) isPart() {}

// ToolApprovalResponsePart answers a ToolApprovalRequestPart. It belongs in a
// tool message.
type ToolApprovalResponsePart struct {
	ApprovalID string
	Approved   bool
	Reason     string

	ProviderOptions ProviderOptions
}

func (ToolApprovalResponsePart) isPart() {}

// DataContent is binary data given inline (Bytes or Base64) or by URL. URLs
// are never fetched by the SDK.
type DataContent struct {
	Bytes  []byte
	Base64 string
	URL    string
}

func DataFromBytes(b []byte) DataContent  { return DataContent{Bytes: b} }
func DataFromBase64(s string) DataContent { return DataContent{Base64: s} }
func DataFromURL(url string) DataContent  { return DataContent{URL: url} }
func (d DataContent) IsURL() bool         { return d.URL != "" }
func (d DataContent) isEmpty() bool       { return len(d.Bytes) == 0 && d.Base64 == "" && d.URL == "" }

// Base64String returns the inline data encoded as standard base64.
func (d DataContent) Base64String() string {
	if d.Base64 != "" {
		return d.Base64
	}
	return base64.StdEncoding.EncodeToString(d.Bytes)
}

// Data returns the inline data as raw bytes.
func (d DataContent) Data() ([]byte, error) {
	if len(d.Bytes) > 0 {
		return d.Bytes, nil
	}
	if d.Base64 == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(d.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []Part{TextPart{Text: text}}}
}

func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Content: parts}
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []Part{TextPart{Text: text}}}
}

func AssistantMessage(parts ...Part) Message {
	return Message{Role: RoleAssistant, Content: parts}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []Part{TextPart{Text: text}}}
}

func ToolMessage(parts ...Part) Message {
	return Message{Role: RoleTool, Content: parts}
}

func ImageURL(url string) ImagePart { return ImagePart{Image: DataFromURL(url)} }

func ImageBytes(mediaType string, b []byte) ImagePart {
	return ImagePart{Image: DataFromBytes(b), MediaType: mediaType}
}

func ImageBase64(mediaType string, b64 string) ImagePart {
	return ImagePart{Image: DataFromBase64(b64), MediaType: mediaType}
}

// ToolResultOutput is the value of a tool result as seen by the model.
type ToolResultOutput interface {
	isToolResultOutput()
}

type OutputText struct {
	Value string

	ProviderOptions ProviderOptions
}

func (OutputText) isToolResultOutput() {}

type OutputJSON struct {
	Value any

	ProviderOptions ProviderOptions
}

func (OutputJSON) isToolResultOutput() {}

type OutputErrorText struct {
	Value string

	ProviderOptions ProviderOptions
}

func (OutputErrorText) isToolResultOutput() {}

type OutputErrorJSON struct {
	Value any

	ProviderOptions ProviderOptions
}

func (OutputErrorJSON) isToolResultOutput() {}

type OutputContent struct {
	Items []OutputContentItem
}

func (OutputContent) isToolResultOutput() {}

type OutputExecutionDenied struct {
	Reason string

	ProviderOptions ProviderOptions
}

func (OutputExecutionDenied) isToolResultOutput() {}

type OutputContentItem interface {
	isOutputContentItem()
}

type ContentText struct{ Text string }

func (ContentText) isOutputContentItem() {}

// ContentMedia is inline media. Data is base64 encoded.
type ContentMedia struct {
	Data      string
	MediaType string
}

func (ContentMedia) isOutputContentItem() {}

type ContentFileID struct{ FileID string }

func (ContentFileID) isOutputContentItem() {}

type ContentURL struct{ URL string }

func (ContentURL) isOutputContentItem() {}

// outputFromValue is the default model-facing form of a tool result.
func outputFromValue(v any) ToolResultOutput {
	if s, ok := v.(string); ok {
		return OutputText{Value: s}
	}
	return OutputJSON{Value: v}
}
