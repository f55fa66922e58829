package ai

import (
	"strings"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

type FinishReason = provider.FinishReason

const (
	FinishStop          = provider.FinishStop
	FinishLength        = provider.FinishLength
	FinishToolCalls     = provider.FinishToolCalls
	FinishContentFilter = provider.FinishContentFilter
	FinishError         = provider.FinishError
	FinishOther         = provider.FinishOther
	FinishUnknown       = provider.FinishUnknown
)

type (
	Usage   = provider.Usage
	Warning = provider.Warning
	Source  = provider.Source
)

// Content is one item produced during a step.
type Content interface {
	isContent()
}

type TextContent struct {
	Text             string
	ProviderMetadata ProviderMetadata
}

type ReasoningContent struct {
	Text             string
	ProviderMetadata ProviderMetadata
}

// GeneratedFile is a file produced by a model.
type GeneratedFile struct {
	MediaType string
	Data      DataContent
}

type FileContent struct {
	File GeneratedFile
}

type SourceContent struct {
	Source Source
}

// ToolCall is a parsed and validated tool call. Input holds the decoded JSON
// value.
type ToolCall struct {
	ToolCallID       string
	ToolName         string
	Input            any
	ProviderExecuted bool
	Dynamic          bool
	ProviderMetadata ProviderMetadata
}

type ToolResult struct {
	ToolCallID       string
	ToolName         string
	Input            any
	Output           any
	ProviderExecuted bool
	Dynamic          bool
	// Preliminary results come from streaming tools and are superseded by the
	// final result with the same ToolCallID.
	Preliminary      bool
	ProviderMetadata ProviderMetadata
}

type ToolError struct {
	ToolCallID       string
	ToolName         string
	Input            any
	Err              error
	ProviderExecuted bool
	Dynamic          bool
}

// ToolOutputDenied records a tool call whose execution was not approved.
type ToolOutputDenied struct {
	ToolCallID string
	ToolName   string
	Reason     string
}

type ToolApprovalRequest struct {
	ApprovalID string
	ToolCall   ToolCall
}

func (TextContent) isContent()         {}
func (ReasoningContent) isContent()    {}
func (FileContent) isContent()         {}
func (SourceContent) isContent()       {}
func (ToolCall) isContent()            {}
func (ToolResult) isContent()          {}
func (ToolError) isContent()           {}
func (ToolOutputDenied) isContent()    {}
func (ToolApprovalRequest) isContent() {}

type RequestMetadata = provider.RequestMetadata

type ResponseMetadata struct {
	provider.ResponseMetadata

	// Messages are the assistant and tool messages produced so far. They can be
	// appended to the conversation history as-is.
	Messages []Message
}

type StepResult struct {
	StepNumber int

	Content      []Content
	FinishReason FinishReason
	Usage        Usage
	Warnings     []Warning

	Request          RequestMetadata
	Response         ResponseMetadata
	ProviderMetadata ProviderMetadata
}

func (s StepResult) Text() string {
	var b strings.Builder
	for _, c := range s.Content {
		if t, ok := c.(TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func (s StepResult) ReasoningText() string {
	var b strings.Builder
	for _, c := range s.Content {
		if r, ok := c.(ReasoningContent); ok {
			b.WriteString(r.Text)
		}
	}
	return b.String()
}

func (s StepResult) Files() []GeneratedFile {
	return collect(s.Content, func(f FileContent) GeneratedFile { return f.File })
}

func (s StepResult) Sources() []Source {
	return collect(s.Content, func(src SourceContent) Source { return src.Source })
}

func (s StepResult) ToolCalls() []ToolCall {
	return collect(s.Content, func(tc ToolCall) ToolCall { return tc })
}

// ToolResults returns final results only.
func (s StepResult) ToolResults() []ToolResult {
	var out []ToolResult
	for _, c := range s.Content {
		if tr, ok := c.(ToolResult); ok && !tr.Preliminary {
			out = append(out, tr)
		}
	}
	return out
}

func (s StepResult) ToolErrors() []ToolError {
	return collect(s.Content, func(te ToolError) ToolError { return te })
}

func (s StepResult) ApprovalRequests() []ToolApprovalRequest {
	return collect(s.Content, func(r ToolApprovalRequest) ToolApprovalRequest { return r })
}

func collect[C Content, T any](content []Content, fn func(C) T) []T {
	var out []T
	for _, c := range content {
		if v, ok := c.(C); ok {
			out = append(out, fn(v))
		}
	}
	return out
}

type GenerateResult struct {
	// Text, ReasoningText, Files and Sources come from the final step.
	Text          string
	ReasoningText string
	Files         []GeneratedFile
	Sources       []Source

	// ToolCalls and ToolResults are collected across all steps.
	ToolCalls   []ToolCall
	ToolResults []ToolResult

	FinishReason FinishReason
	// Usage is the final step's usage; TotalUsage sums all steps.
	Usage      Usage
	TotalUsage Usage
	Warnings   []Warning

	Steps []StepResult

	Request          RequestMetadata
	Response         ResponseMetadata
	ProviderMetadata ProviderMetadata
}

func newGenerateResult(steps []StepResult) *GenerateResult {
	if len(steps) == 0 {
		return &GenerateResult{FinishReason: FinishUnknown}
	}
	last := steps[len(steps)-1]
	res := &GenerateResult{
		Text:             last.Text(),
		ReasoningText:    last.ReasoningText(),
		Files:            last.Files(),
		Sources:          last.Sources(),
		FinishReason:     last.FinishReason,
		Usage:            last.Usage,
		TotalUsage:       sumUsage(steps),
		Warnings:         last.Warnings,
		Steps:            steps,
		Request:          last.Request,
		Response:         last.Response,
		ProviderMetadata: last.ProviderMetadata,
	}
	for _, s := range steps {
		res.ToolCalls = append(res.ToolCalls, s.ToolCalls()...)
		res.ToolResults = append(res.ToolResults, s.ToolResults()...)
	}
	return res
}

func sumUsage(steps []StepResult) Usage {
	var u Usage
	for _, s := range steps {
		u = u.Add(s.Usage)
	}
	return u
}
