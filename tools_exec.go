package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type toolRunner struct {
	tools    ToolSet
	messages []Message
	context  any
	approve  ToolApprovalFunc
	logger   *slog.Logger

	// onPreliminary receives intermediate values of streaming tools.
	onPreliminary func(ToolResult)
}

type callAction int

const (
	actionExecute callAction = iota
	// actionNone leaves the call for the caller: provider-executed calls and
	// tools without an execute function.
	actionNone
	actionDone
)

// decide runs the approval policy for a client tool call. With actionDone
// the returned content (a denial, an approval request or an error) settles
// the call.
func (r *toolRunner) decide(ctx context.Context, call ToolCall) (callAction, Content) {
	if call.ProviderExecuted {
		return actionNone, nil
	}
	tool, ok := r.tools[call.ToolName]
	if !ok || !tool.executable() {
		return actionNone, nil
	}

	needs, err := tool.NeedsApproval.required(ctx, call.Input, r.options(call))
	if err != nil {
		return actionDone, r.toolError(call, fmt.Errorf("approval check: %w", err))
	}
	if !needs {
		return actionExecute, nil
	}
	if r.approve == nil {
		return actionDone, ToolApprovalRequest{ApprovalID: uuid.NewString(), ToolCall: call}
	}

	d, err := r.approve(ctx, call)
	if err != nil {
		return actionDone, r.toolError(call, fmt.Errorf("approval: %w", err))
	}
	if !d.Approved {
		return actionDone, ToolOutputDenied{ToolCallID: call.ToolCallID, ToolName: call.ToolName, Reason: d.Reason}
	}
	return actionExecute, nil
}

func (r *toolRunner) options(call ToolCall) ToolExecuteOptions {
	return ToolExecuteOptions{ToolCallID: call.ToolCallID, Messages: r.messages, Context: r.context}
}

// run executes one call. Failures and panics become ToolError content.
func (r *toolRunner) run(ctx context.Context, call ToolCall) (out Content) {
	tool := r.tools[call.ToolName]
	opts := r.options(call)

	defer func() {
		if p := recover(); p != nil {
			out = r.toolError(call, fmt.Errorf("tool panicked: %v", p))
		}
	}()

	var (
		value any
		err   error
	)
	if tool.ExecuteStream != nil {
		value, err = r.drain(ctx, tool, call, opts)
	} else {
		value, err = tool.Execute(ctx, call.Input, opts)
	}
	if err != nil {
		r.logger.Debug("tool execution failed", "tool", call.ToolName, "toolCallId", call.ToolCallID, "error", err)
		return r.toolError(call, err)
	}
	return ToolResult{
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Input:      call.Input,
		Output:     value,
		Dynamic:    call.Dynamic,
	}
}

// drain consumes a streaming tool. Every value but the last is reported as
// preliminary.
func (r *toolRunner) drain(ctx context.Context, tool Tool, call ToolCall, opts ToolExecuteOptions) (any, error) {
	var (
		last any
		have bool
	)
	for v, err := range tool.ExecuteStream(ctx, call.Input, opts) {
		if err != nil {
			return nil, err
		}
		if have && r.onPreliminary != nil {
			r.onPreliminary(ToolResult{
				ToolCallID:  call.ToolCallID,
				ToolName:    call.ToolName,
				Input:       call.Input,
				Output:      last,
				Dynamic:     call.Dynamic,
				Preliminary: true,
			})
		}
		last, have = v, true
	}
	if !have {
		return nil, errors.New("streaming tool produced no result")
	}
	return last, nil
}

func (r *toolRunner) toolError(call ToolCall, err error) ToolError {
	var te *ToolExecutionError
	if !errors.As(err, &te) {
		err = &ToolExecutionError{ToolName: call.ToolName, ToolCallID: call.ToolCallID, Input: call.Input, Cause: err}
	}
	return ToolError{
		ToolCallID: call.ToolCallID,
		ToolName:   call.ToolName,
		Input:      call.Input,
		Err:        err,
		Dynamic:    call.Dynamic,
	}
}

// process settles every client call of a step. Calls run in parallel except
// Sequential tools, which run one at a time afterwards. The returned content
// follows call order.
func (r *toolRunner) process(ctx context.Context, calls []ToolCall) []Content {
	slots := make([]Content, len(calls))
	var sequential []int
	var g errgroup.Group

	for i, call := range calls {
		action, c := r.decide(ctx, call)
		switch action {
		case actionDone:
			slots[i] = c
			continue
		case actionNone:
			continue
		}
		if r.tools[call.ToolName].Sequential {
			sequential = append(sequential, i)
			continue
		}
		g.Go(func() error {
			slots[i] = r.run(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	for _, i := range sequential {
		slots[i] = r.run(ctx, calls[i])
	}

	out := make([]Content, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// resolveApprovals runs approved calls from a previous request and records
// denials.
func (r *toolRunner) resolveApprovals(ctx context.Context, approved, denied []collectedApproval) []Content {
	calls := make([]ToolCall, 0, len(approved))
	for _, a := range approved {
		calls = append(calls, ToolCall{ToolCallID: a.call.ToolCallID, ToolName: a.call.ToolName, Input: a.call.Input})
	}

	slots := make([]Content, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		if _, ok := r.tools[call.ToolName]; !ok || !r.tools[call.ToolName].executable() {
			slots[i] = r.toolError(call, &NoSuchToolError{ToolName: call.ToolName, AvailableTools: r.tools.Names()})
			continue
		}
		g.Go(func() error {
			slots[i] = r.run(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range denied {
		slots = append(slots, ToolOutputDenied{ToolCallID: d.call.ToolCallID, ToolName: d.call.ToolName, Reason: d.response.Reason})
	}
	return slots
}

// settled reports whether every client call has an output.
func settled(calls []ToolCall, content []Content) bool {
	done := map[string]bool{}
	for _, c := range content {
		switch v := c.(type) {
		case ToolResult:
			if !v.Preliminary && !v.ProviderExecuted {
				done[v.ToolCallID] = true
			}
		case ToolError:
			if !v.ProviderExecuted {
				done[v.ToolCallID] = true
			}
		case ToolOutputDenied:
			done[v.ToolCallID] = true
		}
	}
	n := 0
	for _, call := range calls {
		if call.ProviderExecuted {
			continue
		}
		n++
		if !done[call.ToolCallID] {
			return false
		}
	}
	return n > 0
}
