package ai

import "context"

// ToolApprovalDecision answers a tool call that needs approval.
type ToolApprovalDecision struct {
	Approved bool
	Reason   string
}

// ToolApprovalFunc decides on a tool call synchronously. Without one, calls
// needing approval produce a ToolApprovalRequest and the run stops until the
// caller answers with a ToolApprovalResponsePart.
type ToolApprovalFunc func(ctx context.Context, call ToolCall) (ToolApprovalDecision, error)

type collectedApproval struct {
	request  ToolApprovalRequestPart
	response ToolApprovalResponsePart
	call     ToolCallPart
}

// collectToolApprovals returns the approval responses in a trailing tool
// message, matched with their requests and tool calls. Calls that already
// have a result are skipped.
func collectToolApprovals(msgs []Message) (approved, denied []collectedApproval) {
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != RoleTool {
		return nil, nil
	}

	calls := map[string]ToolCallPart{}
	requests := map[string]ToolApprovalRequestPart{}
	answered := map[string]bool{}
	for _, m := range msgs {
		for _, part := range m.Content {
			switch p := part.(type) {
			case ToolCallPart:
				calls[p.ToolCallID] = p
			case ToolApprovalRequestPart:
				requests[p.ApprovalID] = p
			case ToolResultPart:
				answered[p.ToolCallID] = true
			}
		}
	}

	for _, part := range msgs[len(msgs)-1].Content {
		resp, ok := part.(ToolApprovalResponsePart)
		if !ok {
			continue
		}
		req, ok := requests[resp.ApprovalID]
		if !ok {
			continue
		}
		call, ok := calls[req.ToolCallID]
		if !ok || answered[call.ToolCallID] {
			continue
		}
		c := collectedApproval{request: req, response: resp, call: call}
		if resp.Approved {
			approved = append(approved, c)
		} else {
			denied = append(denied, c)
		}
	}
	return approved, denied
}
