package ai

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

type weatherInput struct {
	City string `json:"city"`
}

func weatherTool(calls *atomic.Int32) Tool {
	return NewTool(ToolSpec[weatherInput, string]{
		Description: "Get the weather for a city",
		InputSchema: JSONSchema([]byte(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`)),
		Execute: func(ctx context.Context, in weatherInput, opts ToolExecuteOptions) (string, error) {
			if calls != nil {
				calls.Add(1)
			}
			return "sunny in " + in.City, nil
		},
	})
}

func TestGenerateText_SingleStep(t *testing.T) {
	model := &fakeLanguageModel{generate: scripted(textResponse("hello", usage(3, 2)))}

	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:  model,
		Prompt: TextPrompt("hi").WithSystem("be brief"),
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.Text != "hello" || res.FinishReason != FinishStop || len(res.Steps) != 1 {
		t.Fatalf("res=%#v", res)
	}
	if res.Usage.TotalTokens != 5 || res.TotalUsage.TotalTokens != 5 {
		t.Fatalf("usage=%#v total=%#v", res.Usage, res.TotalUsage)
	}
	if res.Response.ModelID != "fake-model" || res.Response.ID == "" {
		t.Fatalf("response=%#v", res.Response.ResponseMetadata)
	}

	calls := model.Calls()
	if len(calls) != 1 || len(calls[0].Prompt) != 2 {
		t.Fatalf("calls=%#v", calls)
	}
	if calls[0].Prompt[0].Role != provider.RoleSystem || calls[0].Prompt[0].System != "be brief" {
		t.Fatalf("system=%#v", calls[0].Prompt[0])
	}
}

func TestGenerateText_ToolLoop(t *testing.T) {
	var executed atomic.Int32
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(5, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "weather", Input: `{"city":"Paris"}`}),
		textResponse("It is sunny.", usage(8, 4)),
	)}

	var stepsSeen int
	var finished *FinishEvent
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:        model,
		Prompt:       TextPrompt("weather in Paris?"),
		Tools:        ToolSet{"weather": weatherTool(&executed)},
		StopWhen:     []StopCondition{StepCountIs(5)},
		OnStepFinish: func(StepFinishEvent) { stepsSeen++ },
		OnFinish:     func(ev FinishEvent) { finished = &ev },
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if executed.Load() != 1 || len(res.Steps) != 2 || stepsSeen != 2 || finished == nil {
		t.Fatalf("executed=%d steps=%d seen=%d finished=%v", executed.Load(), len(res.Steps), stepsSeen, finished != nil)
	}
	if res.Text != "It is sunny." {
		t.Fatalf("text=%q", res.Text)
	}
	if len(res.ToolCalls) != 1 || len(res.ToolResults) != 1 || res.ToolResults[0].Output != "sunny in Paris" {
		t.Fatalf("toolCalls=%#v toolResults=%#v", res.ToolCalls, res.ToolResults)
	}
	if res.Usage.TotalTokens != 12 || res.TotalUsage.TotalTokens != 18 || finished.TotalUsage.TotalTokens != 18 {
		t.Fatalf("usage=%#v total=%#v", res.Usage, res.TotalUsage)
	}
	if n := len(res.Response.Messages); n != 3 {
		t.Fatalf("response messages=%d", n)
	}

	second := model.Calls()[1].Prompt
	if len(second) != 3 || second[2].Role != provider.RoleTool {
		t.Fatalf("second prompt=%#v", second)
	}
	tr := second[2].Content[0].(provider.ToolResultPart)
	if tr.ToolCallID != "c1" {
		t.Fatalf("tool result=%#v", tr)
	}
}

func TestGenerateText_DefaultsToOneStep(t *testing.T) {
	var executed atomic.Int32
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "weather", Input: `{"city":"Oslo"}`}),
	)}
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:  model,
		Prompt: TextPrompt("weather?"),
		Tools:  ToolSet{"weather": weatherTool(&executed)},
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.Steps) != 1 || executed.Load() != 1 || len(model.Calls()) != 1 {
		t.Fatalf("steps=%d executed=%d calls=%d", len(res.Steps), executed.Load(), len(model.Calls()))
	}
}

func TestGenerateText_StopsWithoutExecutableTool(t *testing.T) {
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "lookup", Input: `{}`}),
	)}
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:    model,
		Prompt:   TextPrompt("x"),
		Tools:    ToolSet{"lookup": {Description: "client side"}},
		StopWhen: []StopCondition{StepCountIs(5)},
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.Steps) != 1 || len(res.ToolCalls) != 1 || len(res.ToolResults) != 0 {
		t.Fatalf("res=%#v", res)
	}
}

func TestGenerateText_HasToolCallStops(t *testing.T) {
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "weather", Input: `{"city":"Rome"}`}),
	)}
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:    model,
		Prompt:   TextPrompt("x"),
		Tools:    ToolSet{"weather": weatherTool(nil)},
		StopWhen: []StopCondition{StepCountIs(10), HasToolCall("weather")},
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.Steps) != 1 || len(res.ToolResults) != 1 {
		t.Fatalf("steps=%d results=%d", len(res.Steps), len(res.ToolResults))
	}
}

func TestGenerateText_UnknownTool(t *testing.T) {
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "nope", Input: `{}`}),
	)}
	_, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:  model,
		Prompt: TextPrompt("x"),
		Tools:  ToolSet{"weather": weatherTool(nil)},
	}})
	var nst *NoSuchToolError
	if !errors.As(err, &nst) || nst.ToolName != "nope" || len(nst.AvailableTools) != 1 {
		t.Fatalf("err=%v", err)
	}
}

func TestGenerateText_SchemaViolationEndsRun(t *testing.T) {
	var executed atomic.Int32
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "weather", Input: `{}`}),
		textResponse("unreachable", usage(1, 1)),
	)}
	_, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:    model,
		Prompt:   TextPrompt("Weather in SF?"),
		Tools:    ToolSet{"weather": weatherTool(&executed)},
		StopWhen: []StopCondition{StepCountIs(5)},
	}})
	var ie *InvalidToolInputError
	if !errors.As(err, &ie) || ie.ToolName != "weather" || len(ie.Issues) == 0 || ie.Issues[0].Keyword != "required" {
		t.Fatalf("err=%v", err)
	}
	if len(model.Calls()) != 1 || executed.Load() != 0 {
		t.Fatalf("calls=%d executed=%d", len(model.Calls()), executed.Load())
	}
}

func TestGenerateText_RepairToolCall(t *testing.T) {
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "weather", Input: `{"town":"Lima"}`}),
	)}
	var repaired bool
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:  model,
		Prompt: TextPrompt("x"),
		Tools:  ToolSet{"weather": weatherTool(nil)},
		RepairToolCall: func(ctx context.Context, opts ToolCallRepairOptions) (*provider.ToolCall, error) {
			repaired = IsInvalidToolInput(opts.Err)
			fixed := opts.ToolCall
			fixed.Input = `{"city":"Lima"}`
			return &fixed, nil
		},
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !repaired || res.ToolResults[0].Output != "sunny in Lima" {
		t.Fatalf("repaired=%v results=%#v", repaired, res.ToolResults)
	}
}

func TestGenerateText_ToolErrorsAreContent(t *testing.T) {
	tools := ToolSet{
		"fail": NewDynamicTool(DynamicToolSpec{Execute: func(ctx context.Context, input any, opts ToolExecuteOptions) (any, error) {
			return nil, errors.New("backend down")
		}}),
		"panic": NewDynamicTool(DynamicToolSpec{Execute: func(ctx context.Context, input any, opts ToolExecuteOptions) (any, error) {
			panic("boom")
		}}),
	}
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1),
			provider.ToolCall{ToolCallID: "c1", ToolName: "fail", Input: `{}`},
			provider.ToolCall{ToolCallID: "c2", ToolName: "panic", Input: `{}`},
		),
		textResponse("sorry", usage(1, 1)),
	)}
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:    model,
		Prompt:   TextPrompt("x"),
		Tools:    tools,
		StopWhen: []StopCondition{StepCountIs(3)},
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	errs := res.Steps[0].ToolErrors()
	if len(errs) != 2 || !IsToolExecution(errs[0].Err) || !strings.Contains(errs[1].Err.Error(), "panicked") {
		t.Fatalf("errors=%#v", errs)
	}
	if res.Text != "sorry" || !res.ToolCalls[0].Dynamic {
		t.Fatalf("res=%#v", res)
	}

	tool := model.Calls()[1].Prompt[2]
	out := tool.Content[0].(provider.ToolResultPart).Output.(provider.ErrorTextOutput)
	if out.Value != "backend down" {
		t.Fatalf("output=%#v", out)
	}
}

func TestGenerateText_SequentialToolsRunAfterParallel(t *testing.T) {
	var order []string
	var running atomic.Int32
	mk := func(name string, sequential bool) Tool {
		return NewTool(ToolSpec[map[string]any, string]{
			Sequential: sequential,
			Execute: func(ctx context.Context, in map[string]any, opts ToolExecuteOptions) (string, error) {
				if sequential && running.Load() != 0 {
					return "", errors.New("overlapped")
				}
				running.Add(1)
				defer running.Add(-1)
				if sequential {
					order = append(order, name)
				} else {
					time.Sleep(5 * time.Millisecond)
				}
				return name, nil
			},
		})
	}
	model := &fakeLanguageModel{generate: scripted(toolCallResponse(usage(1, 1),
		provider.ToolCall{ToolCallID: "s1", ToolName: "seq1", Input: `{}`},
		provider.ToolCall{ToolCallID: "p1", ToolName: "par", Input: `{}`},
		provider.ToolCall{ToolCallID: "s2", ToolName: "seq2", Input: `{}`},
	))}
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:  model,
		Prompt: TextPrompt("x"),
		Tools:  ToolSet{"seq1": mk("seq1", true), "seq2": mk("seq2", true), "par": mk("par", false)},
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.ToolResults) != 3 || len(order) != 2 || order[0] != "seq1" || order[1] != "seq2" {
		t.Fatalf("results=%#v order=%v", res.ToolResults, order)
	}
	// Results keep call order.
	if res.ToolResults[0].ToolCallID != "s1" || res.ToolResults[1].ToolCallID != "p1" {
		t.Fatalf("results=%#v", res.ToolResults)
	}
}

func TestGenerateText_PrepareStep(t *testing.T) {
	other := &fakeLanguageModel{id: "other", generate: scripted(textResponse("from other", usage(1, 1)))}
	model := &fakeLanguageModel{generate: scripted(
		toolCallResponse(usage(1, 1), provider.ToolCall{ToolCallID: "c1", ToolName: "weather", Input: `{"city":"Bern"}`}),
	)}
	var seen []int
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:    model,
		Prompt:   TextPrompt("x"),
		Tools:    ToolSet{"weather": weatherTool(nil)},
		StopWhen: []StopCondition{StepCountIs(5)},
		PrepareStep: func(ev PrepareStepEvent) (*PrepareStepResult, error) {
			seen = append(seen, ev.StepNumber)
			if ev.StepNumber == 1 {
				sys := "switched"
				return &PrepareStepResult{Model: other, System: &sys, ActiveTools: []string{}}, nil
			}
			return nil, nil
		},
	}})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.Text != "from other" || res.Response.ModelID != "other" || len(seen) != 2 {
		t.Fatalf("res=%#v seen=%v", res, seen)
	}
	call := other.Calls()[0]
	if call.Prompt[0].System != "switched" || len(call.Tools) != 0 {
		t.Fatalf("call=%#v", call)
	}
}

func TestGenerateText_Retries(t *testing.T) {
	fastRetries(t)

	var attempts atomic.Int32
	model := &fakeLanguageModel{generate: func(call int, _ provider.CallOptions) (*provider.GenerateResponse, error) {
		if attempts.Add(1) < 3 {
			return nil, &provider.Error{Provider: "fake", Status: 503, Message: "overloaded"}
		}
		return textResponse("ok", usage(1, 1)), nil
	}}
	res, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{Model: model, Prompt: TextPrompt("x")}})
	if err != nil || res.Text != "ok" || attempts.Load() != 3 {
		t.Fatalf("err=%v attempts=%d", err, attempts.Load())
	}

	attempts.Store(0)
	model.generate = func(call int, _ provider.CallOptions) (*provider.GenerateResponse, error) {
		attempts.Add(1)
		return nil, &provider.Error{Provider: "fake", Status: 429, Message: "slow down"}
	}
	_, err = GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{
		Model:        model,
		Prompt:       TextPrompt("x"),
		CallSettings: CallSettings{MaxRetries: intPtr(1)},
	}})
	var re *RetryError
	if !errors.As(err, &re) || re.Attempts != 2 || re.Reason != RetryMaxRetriesExceeded || !IsRateLimited(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestGenerateText_NonRetryableFailsImmediately(t *testing.T) {
	fastRetries(t)

	model := &fakeLanguageModel{generate: func(call int, _ provider.CallOptions) (*provider.GenerateResponse, error) {
		return nil, &provider.Error{Provider: "fake", Status: 401, Message: "bad key"}
	}}
	_, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: BaseRequest{Model: model, Prompt: TextPrompt("x")}})
	var me *ModelError
	if !errors.As(err, &me) || me.Status != 401 || IsRetry(err) || len(model.Calls()) != 1 {
		t.Fatalf("err=%v calls=%d", err, len(model.Calls()))
	}
}

func TestGenerateText_InvalidArguments(t *testing.T) {
	model := &fakeLanguageModel{generate: scripted(textResponse("x", usage(1, 1)))}
	cases := map[string]BaseRequest{
		"no model":        {Prompt: TextPrompt("x")},
		"empty prompt":    {Model: model},
		"negative tokens": {Model: model, Prompt: TextPrompt("x"), CallSettings: CallSettings{MaxOutputTokens: intPtr(0)}},
		"negative retry":  {Model: model, Prompt: TextPrompt("x"), CallSettings: CallSettings{MaxRetries: intPtr(-1)}},
	}
	for name, base := range cases {
		if _, err := GenerateText(context.Background(), GenerateTextRequest{BaseRequest: base}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if len(model.Calls()) != 0 {
		t.Fatalf("model was called")
	}
}

func TestGenerateText_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	model := &fakeLanguageModel{generate: scripted(textResponse("x", usage(1, 1)))}
	_, err := GenerateText(ctx, GenerateTextRequest{BaseRequest: BaseRequest{Model: model, Prompt: TextPrompt("x")}})
	if !IsAborted(err) {
		t.Fatalf("err=%v", err)
	}
}
