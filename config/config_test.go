package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ai "github.com/bitop-dev/ai-sdk-go"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

type stubModel struct{}

func (stubModel) SpecificationVersion() string { return provider.SpecificationVersion }
func (stubModel) Provider() string             { return "fake" }
func (stubModel) ModelID() string              { return "m1" }
func (stubModel) DoGenerate(ctx context.Context, opts provider.CallOptions) (*provider.GenerateResponse, error) {
	return &provider.GenerateResponse{
		Content:      []provider.Content{provider.Text{Text: "hello"}},
		FinishReason: provider.FinishStop,
	}, nil
}
func (stubModel) DoStream(ctx context.Context, opts provider.CallOptions) (*provider.StreamResponse, error) {
	return &provider.StreamResponse{Stream: provider.NewSliceStream()}, nil
}

func TestParse_ExpandsEnvAndDefaults(t *testing.T) {
	t.Setenv("AGENT_MODEL", "fake:m1")
	f, err := Parse(strings.NewReader(`
model: ${AGENT_MODEL}
instructions: be brief
settings:
  temperature: 0.2
  max_retries: 0
tools: [weather]
storage:
  driver: memory
  on_error: retry
  retry:
    max_retries: 5
    initial_delay: 10ms
`))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if f.Model != "fake:m1" || f.MaxSteps != 20 || *f.Settings.Temperature != 0.2 || *f.Settings.MaxRetries != 0 {
		t.Fatalf("file=%#v", f)
	}
	b := f.Storage.errorBehavior()
	if b.Mode != ai.StorageRetryThenLog || *b.MaxRetries != 5 || b.InitialDelay.Milliseconds() != 10 || b.Multiplier != 2 {
		t.Fatalf("behavior=%#v", b)
	}
}

func TestParse_StorageZeroRetries(t *testing.T) {
	f, err := Parse(strings.NewReader(`
model: fake:m1
storage:
  driver: memory
  on_error: retry
  retry:
    max_retries: 0
`))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if b := f.Storage.errorBehavior(); b.MaxRetries == nil || *b.MaxRetries != 0 {
		t.Fatalf("behavior=%#v", b)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing model":  "instructions: x\n",
		"bad model id":   "model: gpt\n",
		"unknown key":    "model: a:b\nbogus: 1\n",
		"bad driver":     "model: a:b\nstorage:\n  driver: redis\n",
		"sqlite no path": "model: a:b\nstorage:\n  driver: sqlite\n",
		"bad timeout":    "model: a:b\ntimeout: soon\n",
		"bad on_error":   "model: a:b\nstorage:\n  driver: memory\n  on_error: panic\n",
	}
	for name, src := range cases {
		if _, err := Parse(strings.NewReader(src)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNewAgent(t *testing.T) {
	reg := provider.NewRegistry()
	if err := reg.RegisterLanguageModel(stubModel{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	tools := ai.ToolSet{"weather": ai.NewDynamicTool(ai.DynamicToolSpec{
		Execute: func(ctx context.Context, input any, opts ai.ToolExecuteOptions) (any, error) { return "sunny", nil },
	})}

	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	src := "model: fake:m1\nmax_steps: 3\ntimeout: 5s\ntools: [weather]\nsession_id: s1\nstorage:\n  driver: sqlite\n  path: " + filepath.Join(dir, "a.db") + "\n  on_error: return\n"
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a, closeFn, err := NewAgent(context.Background(), f, reg, tools)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	defer closeFn()

	if a.Model.ModelID() != "m1" || a.Timeout.Seconds() != 5 || a.SessionID != "s1" || a.Storage == nil {
		t.Fatalf("agent=%#v", a)
	}
	if a.StorageConfig.ErrorBehavior.Mode != ai.StorageReturnError {
		t.Fatalf("mode=%v", a.StorageConfig.ErrorBehavior.Mode)
	}
	if _, err := a.Generate(context.Background(), ai.AgentGenerateRequest{Prompt: "hi"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	msgs, err := a.Storage.GetMessages(context.Background(), "s1", 0)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("msgs=%d err=%v", len(msgs), err)
	}
}

func TestNewAgent_UnknownModelAndTool(t *testing.T) {
	reg := provider.NewRegistry()
	_ = reg.RegisterLanguageModel(stubModel{})

	if _, _, err := NewAgent(context.Background(), &File{Model: "fake:nope", MaxSteps: 1}, reg, nil); err == nil {
		t.Fatalf("expected unknown model error")
	}
	_, _, err := NewAgent(context.Background(), &File{Model: "fake:m1", MaxSteps: 1, Tools: []string{"x"}}, reg, ai.ToolSet{})
	if !ai.IsNoSuchTool(err) {
		t.Fatalf("err=%v", err)
	}
}
