package provider

// Content is one unit of model output returned by DoGenerate.
type Content interface {
	isContent()
}

type Text struct {
	Text string

	ProviderMetadata Metadata
}

func (Text) isContent() {}

type Reasoning struct {
	Text string

	ProviderMetadata Metadata
}

func (Reasoning) isContent() {}

// File is a model generated file. Exactly one of Base64 or Bytes is set.
type File struct {
	MediaType string
	Base64    string
	Bytes     []byte
}

func (File) isContent() {}

type SourceType string

const (
	SourceURL      SourceType = "url"
	SourceDocument SourceType = "document"
)

type Source struct {
	SourceType SourceType
	ID         string
	URL        string
	Title      string
	MediaType  string
	Filename   string

	ProviderMetadata Metadata
}

func (Source) isContent() {}

// ToolCall is a complete tool call. Input is the raw JSON text emitted by
// the model; it may be empty.
type ToolCall struct {
	ToolCallID       string
	ToolName         string
	Input            string
	ProviderExecuted bool
	Dynamic          bool

	ProviderMetadata Metadata
}

func (ToolCall) isContent() {}

// ToolResult is emitted for tools the provider executed itself.
type ToolResult struct {
	ToolCallID       string
	ToolName         string
	Result           any
	IsError          bool
	ProviderExecuted bool
	Dynamic          bool

	ProviderMetadata Metadata
}

func (ToolResult) isContent() {}
