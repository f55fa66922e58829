package ai

import (
	"context"
	"encoding/json"
	"iter"
	"sort"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

type Schema struct {
	JSON json.RawMessage
}

func JSONSchema(raw json.RawMessage) Schema {
	return Schema{JSON: raw}
}

type ToolType string

const (
	ToolTypeFunction        ToolType = "function"
	ToolTypeProviderDefined ToolType = "provider-defined"
	ToolTypeDynamic         ToolType = "dynamic"
)

// ToolExecuteOptions is passed to every tool execution. Cancellation flows
// through the context handed to Execute.
type ToolExecuteOptions struct {
	ToolCallID string
	// Messages are the messages that were sent to the model to produce the
	// call. They do not include the system prompt or the call itself.
	Messages []Message
	// Context is the request's opaque Context value.
	Context any
}

type ToolExecuteFunc func(ctx context.Context, input any, opts ToolExecuteOptions) (any, error)

// ToolExecuteStreamFunc yields preliminary results followed by the final
// result. A non-nil error ends the execution.
type ToolExecuteStreamFunc func(ctx context.Context, input any, opts ToolExecuteOptions) iter.Seq2[any, error]

type approvalMode int

const (
	approvalNever approvalMode = iota
	approvalAlways
	approvalWhen
)

// NeedsApproval decides whether a tool call must be approved before it runs.
// The zero value never requires approval.
type NeedsApproval struct {
	mode approvalMode
	fn   func(ctx context.Context, input any, opts ToolExecuteOptions) (bool, error)
}

var (
	ApprovalNever  = NeedsApproval{mode: approvalNever}
	ApprovalAlways = NeedsApproval{mode: approvalAlways}
)

func ApprovalWhen(fn func(ctx context.Context, input any, opts ToolExecuteOptions) (bool, error)) NeedsApproval {
	if fn == nil {
		return ApprovalNever
	}
	return NeedsApproval{mode: approvalWhen, fn: fn}
}

func (n NeedsApproval) required(ctx context.Context, input any, opts ToolExecuteOptions) (bool, error) {
	switch n.mode {
	case approvalAlways:
		return true, nil
	case approvalWhen:
		return n.fn(ctx, input, opts)
	default:
		return false, nil
	}
}

type Tool struct {
	// Type defaults to ToolTypeFunction.
	Type ToolType

	// ID and Args are only used by provider-defined tools. ID has the form
	// "<provider>.<name>".
	ID   string
	Args map[string]any

	Description string
	InputSchema Schema

	// Execute or ExecuteStream runs the tool. Tools without either are
	// returned to the caller as unexecuted calls.
	Execute       ToolExecuteFunc
	ExecuteStream ToolExecuteStreamFunc

	NeedsApproval NeedsApproval

	// Sequential tools run alone, after the parallel batch of their step.
	Sequential bool

	// Input lifecycle hooks. Start and Delta fire only while streaming.
	OnInputStart     func(event ToolInputStartEvent)
	OnInputDelta     func(event ToolInputDeltaEvent)
	OnInputAvailable func(event ToolInputAvailableEvent)
	OnInputError     func(event ToolInputErrorEvent)

	// ToModelOutput converts the tool result into what the model sees. By
	// default strings become OutputText and everything else OutputJSON.
	ToModelOutput func(output any) ToolResultOutput
}

func (t Tool) kind() ToolType {
	if t.Type == "" {
		return ToolTypeFunction
	}
	return t.Type
}

func (t Tool) executable() bool {
	return t.Execute != nil || t.ExecuteStream != nil
}

func (t Tool) modelOutput(v any) ToolResultOutput {
	if t.ToModelOutput != nil {
		return t.ToModelOutput(v)
	}
	return outputFromValue(v)
}

// ToolSet maps tool names to tools.
type ToolSet map[string]Tool

// Names returns the tool names in sorted order.
func (ts ToolSet) Names() []string {
	names := make([]string, 0, len(ts))
	for n := range ts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type ToolInputStartEvent struct {
	ToolName   string
	ToolCallID string
	Messages   []Message
}

type ToolInputDeltaEvent struct {
	ToolName       string
	ToolCallID     string
	InputTextDelta string
}

type ToolInputAvailableEvent struct {
	ToolName   string
	ToolCallID string
	Input      any
}

type ToolInputErrorEvent struct {
	ToolName   string
	ToolCallID string
	Input      string
	Err        error
}

type (
	ToolChoice     = provider.ToolChoice
	ToolChoiceType = provider.ToolChoiceType
)

const (
	ToolChoiceAuto     = provider.ToolChoiceAuto
	ToolChoiceNone     = provider.ToolChoiceNone
	ToolChoiceRequired = provider.ToolChoiceRequired
	ToolChoiceTool     = provider.ToolChoiceTool
)

func ToolChoiceFor(name string) *ToolChoice {
	return &ToolChoice{Type: ToolChoiceTool, ToolName: name}
}
