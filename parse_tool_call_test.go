package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

func TestParseToolCall(t *testing.T) {
	tools := ToolSet{"weather": weatherTool(nil)}
	ctx := context.Background()

	tc, err := ParseToolCall(ctx, provider.ToolCall{ToolCallID: "c1", ToolName: "weather", Input: `{"city":"Oslo"}`}, tools, nil, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if tc.Input.(map[string]any)["city"] != "Oslo" || tc.Dynamic {
		t.Fatalf("call=%#v", tc)
	}

	_, err = ParseToolCall(ctx, provider.ToolCall{ToolCallID: "c2", ToolName: "weather", Input: `{}`}, tools, nil, nil)
	var ie *InvalidToolInputError
	if !errors.As(err, &ie) || len(ie.Issues) == 0 || ie.ToolCallID != "c2" {
		t.Fatalf("err=%v", err)
	}
	if _, err := ParseToolCall(ctx, provider.ToolCall{ToolName: "weather", Input: `{"city":`}, tools, nil, nil); !IsInvalidToolInput(err) {
		t.Fatalf("err=%v", err)
	}
	if _, err := ParseToolCall(ctx, provider.ToolCall{ToolName: "nope"}, tools, nil, nil); !IsNoSuchTool(err) {
		t.Fatalf("err=%v", err)
	}

	// Unknown provider-executed tools pass through as dynamic calls.
	tc, err = ParseToolCall(ctx, provider.ToolCall{ToolName: "web_search", Input: "not json", ProviderExecuted: true}, tools, nil, nil)
	if err != nil || !tc.Dynamic || tc.Input != "not json" {
		t.Fatalf("call=%#v err=%v", tc, err)
	}
}

func TestParseToolCall_Repair(t *testing.T) {
	tools := ToolSet{"weather": weatherTool(nil)}
	var seen error
	repair := func(ctx context.Context, opts ToolCallRepairOptions) (*provider.ToolCall, error) {
		seen = opts.Err
		fixed := opts.ToolCall
		fixed.ToolName = "weather"
		return &fixed, nil
	}
	tc, err := ParseToolCall(context.Background(), provider.ToolCall{ToolCallID: "c1", ToolName: "Weather", Input: `{"city":"Rome"}`}, tools, repair, nil)
	if err != nil || tc.ToolName != "weather" || !IsNoSuchTool(seen) {
		t.Fatalf("call=%#v err=%v seen=%v", tc, err, seen)
	}

	giveUp := func(ctx context.Context, opts ToolCallRepairOptions) (*provider.ToolCall, error) { return nil, nil }
	if _, err := ParseToolCall(context.Background(), provider.ToolCall{ToolName: "Weather"}, tools, giveUp, nil); !IsNoSuchTool(err) {
		t.Fatalf("err=%v", err)
	}
}
