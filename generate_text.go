package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitop-dev/ai-sdk-go/provider"
	"github.com/google/uuid"
)

// BaseRequest holds the fields shared by GenerateText, StreamText and Agent
// calls.
type BaseRequest struct {
	Model provider.LanguageModel
	Prompt

	CallSettings

	Tools       ToolSet
	ToolChoice  *ToolChoice
	ActiveTools []string

	ProviderOptions ProviderOptions

	// StopWhen defaults to StepCountIs(1).
	StopWhen []StopCondition

	PrepareStep     func(event PrepareStepEvent) (*PrepareStepResult, error)
	RepairToolCall  ToolCallRepairFunc
	ApproveToolCall ToolApprovalFunc

	OnStepFinish func(event StepFinishEvent)
	OnFinish     func(event FinishEvent)

	// Context is passed unchanged to tool executions.
	Context any

	Timeout time.Duration
	Logger  *slog.Logger

	// afterStep receives the messages added since its previous call.
	afterStep      func(ctx context.Context, step StepResult, msgs []Message) error
	responseFormat *provider.ResponseFormat
}

type GenerateTextRequest struct {
	BaseRequest
}

type PrepareStepEvent struct {
	StepNumber int
	Steps      []StepResult
	Model      provider.LanguageModel
	Messages   []Message
}

// PrepareStepResult overrides settings for a single step. Nil fields keep
// the request's values.
type PrepareStepResult struct {
	Model       provider.LanguageModel
	System      *string
	Messages    []Message
	ToolChoice  *ToolChoice
	ActiveTools []string
}

type StepFinishEvent struct {
	Step StepResult
}

type FinishEvent struct {
	Steps      []StepResult
	TotalUsage Usage
	Result     *GenerateResult
}

// run is the state shared by both drivers for one call.
type run struct {
	base     BaseRequest
	settings PreparedCallSettings
	retrier  *Retrier
	logger   *slog.Logger
	stopWhen []StopCondition

	initial []Message
	// responseMessages grows by one assistant (and tool) message per step.
	responseMessages []Message
	steps            []StepResult
	persisted        int
}

func newRun(base BaseRequest, defaultStop []StopCondition) (*run, error) {
	if err := checkSpecificationVersion(base.Model); err != nil {
		return nil, err
	}
	settings, err := PrepareCallSettings(base.CallSettings)
	if err != nil {
		return nil, err
	}
	logger := orDiscard(base.Logger)
	retrier, err := PrepareRetries(base.MaxRetries, logger)
	if err != nil {
		return nil, err
	}
	std, err := ValidateAndStandardize(base.Prompt)
	if err != nil {
		return nil, err
	}
	stop := base.StopWhen
	if len(stop) == 0 {
		stop = defaultStop
	}
	return &run{
		base:     base,
		settings: settings,
		retrier:  retrier,
		logger:   logger,
		stopWhen: stop,
		initial:  std.Messages,
	}, nil
}

func (r *run) runner(messages []Message) *toolRunner {
	return &toolRunner{
		tools:    r.base.Tools,
		messages: messages,
		context:  r.base.Context,
		approve:  r.base.ApproveToolCall,
		logger:   r.logger,
	}
}

// resolvePendingApprovals executes or denies calls answered in the prompt's
// trailing tool message.
func (r *run) resolvePendingApprovals(ctx context.Context) []Content {
	approved, denied := collectToolApprovals(r.initial)
	if len(approved) == 0 && len(denied) == 0 {
		return nil
	}
	content := r.runner(r.initial).resolveApprovals(ctx, approved, denied)
	r.responseMessages = append(r.responseMessages, toResponseMessages(content, r.base.Tools)...)
	return content
}

// stepCall is everything needed to issue one model call.
type stepCall struct {
	model    provider.LanguageModel
	messages []Message
	tools    ToolSet
	opts     provider.CallOptions
}

func (r *run) prepareStep() (*stepCall, error) {
	messages := make([]Message, 0, len(r.initial)+len(r.responseMessages))
	messages = append(messages, r.initial...)
	messages = append(messages, r.responseMessages...)

	model := r.base.Model
	toolChoice := r.base.ToolChoice
	active := r.base.ActiveTools

	if r.base.PrepareStep != nil {
		res, err := r.base.PrepareStep(PrepareStepEvent{
			StepNumber: len(r.steps),
			Steps:      append([]StepResult(nil), r.steps...),
			Model:      model,
			Messages:   append([]Message(nil), messages...),
		})
		if err != nil {
			return nil, err
		}
		if res != nil {
			if res.Model != nil {
				if err := checkSpecificationVersion(res.Model); err != nil {
					return nil, err
				}
				model = res.Model
			}
			if res.Messages != nil {
				messages = res.Messages
			}
			if res.System != nil {
				messages = replaceSystem(messages, *res.System)
			}
			if res.ToolChoice != nil {
				toolChoice = res.ToolChoice
			}
			if res.ActiveTools != nil {
				active = res.ActiveTools
			}
		}
	}

	lm, err := ConvertToLanguageModelPrompt(Prompt{Messages: messages})
	if err != nil {
		return nil, err
	}
	_, defs := prepareTools(r.base.Tools, active)

	s := r.settings
	return &stepCall{
		model:    model,
		messages: messages,
		tools:    r.base.Tools,
		opts: provider.CallOptions{
			Prompt:           lm,
			MaxOutputTokens:  s.MaxOutputTokens,
			Temperature:      s.Temperature,
			StopSequences:    s.StopSequences,
			TopP:             s.TopP,
			TopK:             s.TopK,
			PresencePenalty:  s.PresencePenalty,
			FrequencyPenalty: s.FrequencyPenalty,
			Seed:             s.Seed,
			Tools:            defs,
			ToolChoice:       toolChoice,
			ResponseFormat:   r.base.responseFormat,
			Headers:          cloneStringMap(r.base.Headers),
			ProviderOptions:  r.base.ProviderOptions,
		},
	}, nil
}

func replaceSystem(msgs []Message, system string) []Message {
	out := make([]Message, 0, len(msgs)+1)
	if system != "" {
		out = append(out, SystemMessage(system))
	}
	for _, m := range msgs {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// finishStep records a completed step and reports whether the loop goes on.
func (r *run) finishStep(step StepResult, clientCalls []ToolCall) (StepResult, bool) {
	r.responseMessages = append(r.responseMessages, toResponseMessages(step.Content, r.base.Tools)...)
	step.StepNumber = len(r.steps)
	step.Response.Messages = append([]Message(nil), r.responseMessages...)
	r.steps = append(r.steps, step)

	if !settled(clientCalls, step.Content) {
		return step, false
	}
	return step, !isStopConditionMet(r.stopWhen, r.steps)
}

func (r *run) persistStep(ctx context.Context, step StepResult) error {
	if r.base.afterStep == nil {
		return nil
	}
	msgs := r.responseMessages[r.persisted:]
	r.persisted = len(r.responseMessages)
	return r.base.afterStep(ctx, step, msgs)
}

func responseMetadata(model provider.LanguageModel, m *provider.ResponseMetadata) ResponseMetadata {
	var out ResponseMetadata
	if m != nil {
		out.ResponseMetadata = *m
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now()
	}
	if out.ModelID == "" {
		out.ModelID = model.ModelID()
	}
	return out
}

func requestMetadata(m *provider.RequestMetadata) RequestMetadata {
	if m == nil {
		return RequestMetadata{}
	}
	return *m
}

// GenerateText runs the model, executing tool calls and looping until a stop
// condition is met or the model stops calling tools.
func GenerateText(ctx context.Context, req GenerateTextRequest) (*GenerateResult, error) {
	return generateText(ctx, req.BaseRequest, []StopCondition{StepCountIs(1)})
}

func generateText(ctx context.Context, base BaseRequest, defaultStop []StopCondition) (*GenerateResult, error) {
	ctx, cancel := applyTimeout(ctx, base.Timeout)
	defer cancel()

	r, err := newRun(base, defaultStop)
	if err != nil {
		return nil, err
	}
	r.resolvePendingApprovals(ctx)

	for {
		if ctx.Err() != nil {
			return nil, abortedErr(ctx)
		}
		call, err := r.prepareStep()
		if err != nil {
			return nil, err
		}

		resp, err := retryCall(ctx, r.retrier, func(ctx context.Context) (*provider.GenerateResponse, error) {
			return call.model.DoGenerate(ctx, call.opts)
		})
		if err != nil {
			return nil, err
		}

		content, calls, err := r.parseContent(ctx, resp.Content, call.messages)
		if err != nil {
			return nil, err
		}
		content = append(content, r.runner(call.messages).process(ctx, calls)...)
		if ctx.Err() != nil {
			return nil, abortedErr(ctx)
		}

		step := StepResult{
			Content:          content,
			FinishReason:     resp.FinishReason,
			Usage:            resp.Usage,
			Warnings:         resp.Warnings,
			Request:          requestMetadata(resp.Request),
			Response:         responseMetadata(call.model, resp.Response),
			ProviderMetadata: resp.ProviderMetadata,
		}
		step, more := r.finishStep(step, calls)
		if err := r.persistStep(ctx, step); err != nil {
			return nil, err
		}
		if base.OnStepFinish != nil {
			base.OnStepFinish(StepFinishEvent{Step: step})
		}
		if !more {
			break
		}
	}

	res := newGenerateResult(r.steps)
	if base.OnFinish != nil {
		base.OnFinish(FinishEvent{Steps: res.Steps, TotalUsage: res.TotalUsage, Result: res})
	}
	return res, nil
}

// parseContent maps provider content into step content and returns the
// parsed tool calls in order.
func (r *run) parseContent(ctx context.Context, in []provider.Content, messages []Message) ([]Content, []ToolCall, error) {
	out := make([]Content, 0, len(in))
	var calls []ToolCall
	for _, c := range in {
		switch v := c.(type) {
		case provider.Text:
			out = append(out, TextContent{Text: v.Text, ProviderMetadata: v.ProviderMetadata})
		case provider.Reasoning:
			out = append(out, ReasoningContent{Text: v.Text, ProviderMetadata: v.ProviderMetadata})
		case provider.File:
			out = append(out, FileContent{File: generatedFile(v)})
		case provider.Source:
			out = append(out, SourceContent{Source: v})
		case provider.ToolCall:
			tc, err := ParseToolCall(ctx, v, r.base.Tools, r.base.RepairToolCall, messages)
			if err != nil {
				return nil, nil, err
			}
			if t, ok := r.base.Tools[tc.ToolName]; ok && t.OnInputAvailable != nil {
				t.OnInputAvailable(ToolInputAvailableEvent{ToolName: tc.ToolName, ToolCallID: tc.ToolCallID, Input: tc.Input})
			}
			out = append(out, tc)
			calls = append(calls, tc)
		case provider.ToolResult:
			out = append(out, providerToolResult(v))
		}
	}
	return out, calls, nil
}

func generatedFile(f provider.File) GeneratedFile {
	d := DataFromBase64(f.Base64)
	if len(f.Bytes) > 0 {
		d = DataFromBytes(f.Bytes)
	}
	return GeneratedFile{MediaType: f.MediaType, Data: d}
}

func providerToolResult(v provider.ToolResult) Content {
	if v.IsError {
		return ToolError{
			ToolCallID:       v.ToolCallID,
			ToolName:         v.ToolName,
			Err:              &ToolExecutionError{ToolName: v.ToolName, ToolCallID: v.ToolCallID, Cause: providerToolFailure{v.Result}},
			ProviderExecuted: true,
			Dynamic:          v.Dynamic,
		}
	}
	return ToolResult{
		ToolCallID:       v.ToolCallID,
		ToolName:         v.ToolName,
		Output:           v.Result,
		ProviderExecuted: true,
		Dynamic:          v.Dynamic,
		ProviderMetadata: v.ProviderMetadata,
	}
}

// providerToolFailure carries the error payload of a provider-executed tool.
type providerToolFailure struct{ value any }

func (f providerToolFailure) Error() string {
	if s, ok := f.value.(string); ok {
		return s
	}
	b, err := json.Marshal(f.value)
	if err != nil {
		return "provider tool error"
	}
	return string(b)
}

func abortedErr(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx))
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
