package provider

import (
	"context"
	"encoding/json"
)

// Model is implemented by every model kind.
type Model interface {
	// SpecificationVersion must return SpecificationVersion ("v3").
	SpecificationVersion() string
	Provider() string
	ModelID() string
}

type LanguageModel interface {
	Model

	DoGenerate(ctx context.Context, opts CallOptions) (*GenerateResponse, error)
	DoStream(ctx context.Context, opts CallOptions) (*StreamResponse, error)
}

type ResponseFormat struct {
	// Type is "text" or "json".
	Type        string
	Schema      json.RawMessage
	Name        string
	Description string
}

type CallOptions struct {
	Prompt Prompt

	MaxOutputTokens  *int
	Temperature      *float64
	StopSequences    []string
	TopP             *float64
	TopK             *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	Seed             *int

	ResponseFormat *ResponseFormat

	Tools      []Tool
	ToolChoice *ToolChoice

	// IncludeRawChunks asks streaming implementations to emit Raw parts.
	IncludeRawChunks bool

	Headers         map[string]string
	ProviderOptions ProviderOptions
}

type GenerateResponse struct {
	Content      []Content
	FinishReason FinishReason
	Usage        Usage
	Warnings     []Warning

	Request          *RequestMetadata
	Response         *ResponseMetadata
	ProviderMetadata Metadata
}

type StreamResponse struct {
	Stream Stream

	Request  *RequestMetadata
	Response *ResponseMetadata
}
