package ai

// StreamPart is one event of StreamResult.FullStream.
//
// Every StreamTextStart, StreamReasoningStart and StreamToolInputStart is
// closed by exactly one matching End with the same ID, with deltas in
// between. StreamStartStep opens each step and StreamFinishStep closes it.
// StreamFinish and StreamAbort are terminal.
type StreamPart interface {
	isStreamPart()
}

type StreamStart struct{}

type StreamStartStep struct {
	Request  RequestMetadata
	Warnings []Warning
}

type StreamTextStart struct {
	ID               string
	ProviderMetadata ProviderMetadata
}

type StreamTextDelta struct {
	ID               string
	Text             string
	ProviderMetadata ProviderMetadata
}

type StreamTextEnd struct {
	ID               string
	ProviderMetadata ProviderMetadata
}

type StreamReasoningStart struct {
	ID               string
	ProviderMetadata ProviderMetadata
}

type StreamReasoningDelta struct {
	ID               string
	Text             string
	ProviderMetadata ProviderMetadata
}

type StreamReasoningEnd struct {
	ID               string
	ProviderMetadata ProviderMetadata
}

type StreamSource struct {
	Source Source
}

type StreamFile struct {
	File GeneratedFile
}

type StreamToolInputStart struct {
	ID               string
	ToolName         string
	ProviderExecuted bool
	Dynamic          bool
}

type StreamToolInputDelta struct {
	ID    string
	Delta string
}

type StreamToolInputEnd struct {
	ID string
}

type StreamToolCall struct {
	ToolCall ToolCall
}

// StreamToolResult carries both preliminary and final results.
type StreamToolResult struct {
	ToolResult ToolResult
}

type StreamToolError struct {
	ToolError ToolError
}

type StreamToolOutputDenied struct {
	Denied ToolOutputDenied
}

type StreamToolApprovalRequest struct {
	Request ToolApprovalRequest
}

type StreamFinishStep struct {
	Response         ResponseMetadata
	Usage            Usage
	FinishReason     FinishReason
	ProviderMetadata ProviderMetadata

	// Step is the completed step.
	Step StepResult
}

type StreamFinish struct {
	FinishReason FinishReason
	TotalUsage   Usage
}

type StreamRaw struct {
	Value any
}

type StreamError struct {
	Err error
}

// StreamAbort is emitted when the context is cancelled mid-stream. Steps are
// the steps that completed before cancellation.
type StreamAbort struct {
	Steps []StepResult
}

func (StreamStart) isStreamPart()               {}
func (StreamStartStep) isStreamPart()           {}
func (StreamTextStart) isStreamPart()           {}
func (StreamTextDelta) isStreamPart()           {}
func (StreamTextEnd) isStreamPart()             {}
func (StreamReasoningStart) isStreamPart()      {}
func (StreamReasoningDelta) isStreamPart()      {}
func (StreamReasoningEnd) isStreamPart()        {}
func (StreamSource) isStreamPart()              {}
func (StreamFile) isStreamPart()                {}
func (StreamToolInputStart) isStreamPart()      {}
func (StreamToolInputDelta) isStreamPart()      {}
func (StreamToolInputEnd) isStreamPart()        {}
func (StreamToolCall) isStreamPart()            {}
func (StreamToolResult) isStreamPart()          {}
func (StreamToolError) isStreamPart()           {}
func (StreamToolOutputDenied) isStreamPart()    {}
func (StreamToolApprovalRequest) isStreamPart() {}
func (StreamFinishStep) isStreamPart()          {}
func (StreamFinish) isStreamPart()              {}
func (StreamRaw) isStreamPart()                 {}
func (StreamError) isStreamPart()               {}
func (StreamAbort) isStreamPart()               {}

// isChunk reports whether p is forwarded to OnChunk.
func isChunk(p StreamPart) bool {
	switch p.(type) {
	case StreamTextDelta, StreamReasoningDelta, StreamSource, StreamFile,
		StreamToolCall, StreamToolInputStart, StreamToolInputDelta,
		StreamToolResult, StreamToolError, StreamRaw:
		return true
	}
	return false
}

func contentPart(c Content) StreamPart {
	switch v := c.(type) {
	case ToolResult:
		return StreamToolResult{ToolResult: v}
	case ToolError:
		return StreamToolError{ToolError: v}
	case ToolOutputDenied:
		return StreamToolOutputDenied{Denied: v}
	case ToolApprovalRequest:
		return StreamToolApprovalRequest{Request: v}
	}
	return nil
}
