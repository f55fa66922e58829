package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

// Agent is a reusable configuration for agentic loops: a model, its default
// settings, tools and loop control, plus optional conversation storage.
//
// StopWhen defaults to StepCountIs(20).
type Agent struct {
	Model        provider.LanguageModel
	Instructions string

	CallSettings

	Tools           ToolSet
	ToolChoice      *ToolChoice
	ActiveTools     []string
	ProviderOptions ProviderOptions
	StopWhen        []StopCondition

	PrepareStep     func(event PrepareStepEvent) (*PrepareStepResult, error)
	RepairToolCall  ToolCallRepairFunc
	ApproveToolCall ToolApprovalFunc
	OnStepFinish    func(event StepFinishEvent)
	OnFinish        func(event FinishEvent)

	Context any
	Timeout time.Duration
	Logger  *slog.Logger

	// Storage, when set together with SessionID, makes the agent stateful:
	// prior messages are loaded before each call and new ones are persisted
	// after every step.
	Storage       Storage
	SessionID     string
	StorageConfig StorageConfig
}

// AgentGenerateRequest is one agent call. Exactly one of Prompt and Messages
// must be set.
type AgentGenerateRequest struct {
	Prompt   string
	Messages []Message

	// SessionID overrides the agent's session for this call.
	SessionID string
	// Stateless skips storage for this call.
	Stateless bool
}

type AgentStreamRequest struct {
	AgentGenerateRequest

	Transforms       []StreamTransform
	IncludeRawChunks bool
	OnChunk          func(event ChunkEvent)
	OnError          func(event ErrorEvent)
	OnAbort          func(event AbortEvent)
}

var agentDefaultStop = []StopCondition{StepCountIs(20)}

func (a *Agent) Generate(ctx context.Context, req AgentGenerateRequest) (*GenerateResult, error) {
	base, err := a.baseRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return generateText(ctx, base, agentDefaultStop)
}

func (a *Agent) Stream(ctx context.Context, req AgentStreamRequest) (*StreamResult, error) {
	base, err := a.baseRequest(ctx, req.AgentGenerateRequest)
	if err != nil {
		return nil, err
	}
	return streamText(ctx, StreamTextRequest{
		BaseRequest:      base,
		Transforms:       req.Transforms,
		IncludeRawChunks: req.IncludeRawChunks,
		OnChunk:          req.OnChunk,
		OnError:          req.OnError,
		OnAbort:          req.OnAbort,
	}, agentDefaultStop)
}

func (a *Agent) baseRequest(ctx context.Context, req AgentGenerateRequest) (BaseRequest, error) {
	if a.Model == nil {
		return BaseRequest{}, &InvalidArgumentError{Parameter: "model", Reason: "agent model is required"}
	}
	var fresh []Message
	switch {
	case req.Prompt != "" && len(req.Messages) > 0:
		return BaseRequest{}, &InvalidArgumentError{Parameter: "prompt", Reason: "prompt and messages cannot both be set"}
	case req.Prompt != "":
		fresh = []Message{UserText(req.Prompt)}
	case len(req.Messages) > 0:
		fresh = append([]Message(nil), req.Messages...)
	default:
		return BaseRequest{}, &InvalidArgumentError{Parameter: "prompt", Reason: "either prompt or messages must be provided"}
	}

	var system []Message
	if fresh[0].Role == RoleSystem {
		system, fresh = []Message{fresh[0]}, fresh[1:]
	}

	base := BaseRequest{
		Model:           a.Model,
		CallSettings:    a.CallSettings,
		Tools:           a.Tools,
		ToolChoice:      a.ToolChoice,
		ActiveTools:     a.ActiveTools,
		ProviderOptions: a.ProviderOptions,
		StopWhen:        a.StopWhen,
		PrepareStep:     a.PrepareStep,
		RepairToolCall:  a.RepairToolCall,
		ApproveToolCall: a.ApproveToolCall,
		OnStepFinish:    a.OnStepFinish,
		OnFinish:        a.OnFinish,
		Context:         a.Context,
		Timeout:         a.Timeout,
		Logger:          a.Logger,
	}
	if len(system) == 0 {
		base.System = a.Instructions
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = a.SessionID
	}
	if req.Stateless || a.Storage == nil || sessionID == "" {
		base.Messages = append(system, fresh...)
		return base, nil
	}

	s := &agentSession{
		storage: a.Storage,
		id:      sessionID,
		guard:   newStorageGuard(a.StorageConfig, a.Logger),
		pending: fresh,
	}
	history, err := s.load(ctx)
	if err != nil {
		return BaseRequest{}, err
	}
	base.Messages = append(append(system, history...), fresh...)
	base.afterStep = s.persist
	return base, nil
}

// agentSession binds one call to a stored conversation.
type agentSession struct {
	storage Storage
	id      string
	guard   storageGuard
	// pending holds the caller's messages until the first step persists them.
	pending []Message
}

// load makes sure the session exists and returns its messages.
func (s *agentSession) load(ctx context.Context) ([]Message, error) {
	var stored []StoredMessage
	ok, err := s.guard.do(ctx, "get_messages", s.id, func(ctx context.Context) error {
		_, err := s.storage.GetSession(ctx, s.id)
		if IsStorageNotFound(err) {
			now := time.Now()
			return s.storage.StoreSession(ctx, Session{ID: s.id, CreatedAt: now, UpdatedAt: now})
		}
		if err != nil {
			return err
		}
		stored, err = s.storage.GetMessages(ctx, s.id, 0)
		return err
	})
	if err != nil || !ok {
		return nil, err
	}
	out := make([]Message, 0, len(stored))
	for _, m := range stored {
		if m.Message.Role == RoleSystem {
			continue
		}
		out = append(out, m.Message)
	}
	return out, nil
}

func (s *agentSession) persist(ctx context.Context, step StepResult, msgs []Message) error {
	all := append(append([]Message(nil), s.pending...), msgs...)
	if len(all) == 0 {
		return nil
	}
	now := time.Now()
	stored := make([]StoredMessage, 0, len(all))
	for i, m := range all {
		sm := StoredMessage{
			ID:        s.storage.GenerateMessageID(),
			SessionID: s.id,
			Message:   m,
			// Tie-break for messages written in the same step.
			CreatedAt: now.Add(time.Duration(i)),
		}
		if m.Role == RoleAssistant {
			u := step.Usage
			sm.ModelID = step.Response.ModelID
			sm.FinishReason = step.FinishReason
			sm.Usage = &u
		}
		stored = append(stored, sm)
	}
	_, err := s.guard.do(ctx, "store_messages", s.id, func(ctx context.Context) error {
		return s.storage.StoreMessages(ctx, s.id, stored)
	})
	if err != nil {
		return err
	}
	s.pending = nil
	return nil
}
