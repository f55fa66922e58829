package provider

import "time"

// SpecificationVersion is the contract version implemented by every model in
// this package. Callers reject models reporting anything else.
const SpecificationVersion = "v3"

// ProviderOptions is an opaque side channel keyed by provider name. The SDK
// forwards it unchanged.
type ProviderOptions map[string]map[string]any

// Metadata is provider-specific response metadata keyed by provider name.
type Metadata map[string]map[string]any

type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishContentFilter FinishReason = "content-filter"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
	FinishUnknown       FinishReason = "unknown"
)

// Usage reports token consumption. Zero means the provider did not report a
// value.
type Usage struct {
	InputTokens       int
	OutputTokens      int
	TotalTokens       int
	ReasoningTokens   int
	CachedInputTokens int
}

func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:       u.InputTokens + o.InputTokens,
		OutputTokens:      u.OutputTokens + o.OutputTokens,
		TotalTokens:       u.TotalTokens + o.TotalTokens,
		ReasoningTokens:   u.ReasoningTokens + o.ReasoningTokens,
		CachedInputTokens: u.CachedInputTokens + o.CachedInputTokens,
	}
}

type WarningType string

const (
	WarningUnsupportedSetting WarningType = "unsupported-setting"
	WarningUnsupportedTool    WarningType = "unsupported-tool"
	WarningOther              WarningType = "other"
)

type Warning struct {
	Type    WarningType
	Setting string
	Tool    string
	Details string
	Message string
}

type RequestMetadata struct {
	// Body is the raw request body as sent by the provider (if exposed).
	Body any
}

type ResponseMetadata struct {
	ID        string
	Timestamp time.Time
	ModelID   string
	Headers   map[string]string
	Body      any
}

// MergeMetadata extends dst with src. Inner maps are merged key by key and
// src wins on collisions.
func MergeMetadata(dst, src Metadata) Metadata {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = Metadata{}
	}
	for name, inner := range src {
		cur, ok := dst[name]
		if !ok {
			cur = make(map[string]any, len(inner))
			dst[name] = cur
		}
		for k, v := range inner {
			cur[k] = v
		}
	}
	return dst
}
