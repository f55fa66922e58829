package ai

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

type fakeLanguageModel struct {
	id string

	mu    sync.Mutex
	calls []provider.CallOptions

	generate func(call int, opts provider.CallOptions) (*provider.GenerateResponse, error)
	stream   func(call int, opts provider.CallOptions) (*provider.StreamResponse, error)
}

func (m *fakeLanguageModel) SpecificationVersion() string { return provider.SpecificationVersion }
func (m *fakeLanguageModel) Provider() string             { return "fake" }

func (m *fakeLanguageModel) ModelID() string {
	if m.id == "" {
		return "fake-model"
	}
	return m.id
}

func (m *fakeLanguageModel) record(opts provider.CallOptions) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, opts)
	return len(m.calls) - 1
}

func (m *fakeLanguageModel) DoGenerate(ctx context.Context, opts provider.CallOptions) (*provider.GenerateResponse, error) {
	call := m.record(opts)
	if m.generate == nil {
		return nil, fmt.Errorf("fakeLanguageModel.DoGenerate not configured")
	}
	return m.generate(call, opts)
}

func (m *fakeLanguageModel) DoStream(ctx context.Context, opts provider.CallOptions) (*provider.StreamResponse, error) {
	call := m.record(opts)
	if m.stream == nil {
		return nil, fmt.Errorf("fakeLanguageModel.DoStream not configured")
	}
	return m.stream(call, opts)
}

func (m *fakeLanguageModel) Calls() []provider.CallOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.CallOptions(nil), m.calls...)
}

// scripted answers the n-th call with responses[n] and fails past the end.
func scripted(responses ...*provider.GenerateResponse) func(int, provider.CallOptions) (*provider.GenerateResponse, error) {
	return func(call int, _ provider.CallOptions) (*provider.GenerateResponse, error) {
		if call >= len(responses) {
			return nil, fmt.Errorf("unexpected call %d", call)
		}
		return responses[call], nil
	}
}

func scriptedStream(steps ...[]provider.StreamPart) func(int, provider.CallOptions) (*provider.StreamResponse, error) {
	return func(call int, _ provider.CallOptions) (*provider.StreamResponse, error) {
		if call >= len(steps) {
			return nil, fmt.Errorf("unexpected call %d", call)
		}
		return &provider.StreamResponse{Stream: provider.NewSliceStream(steps[call]...)}, nil
	}
}

func textResponse(text string, usage provider.Usage) *provider.GenerateResponse {
	return &provider.GenerateResponse{
		Content:      []provider.Content{provider.Text{Text: text}},
		FinishReason: provider.FinishStop,
		Usage:        usage,
	}
}

func toolCallResponse(usage provider.Usage, calls ...provider.ToolCall) *provider.GenerateResponse {
	content := make([]provider.Content, 0, len(calls))
	for _, c := range calls {
		content = append(content, c)
	}
	return &provider.GenerateResponse{Content: content, FinishReason: provider.FinishToolCalls, Usage: usage}
}

func textStream(id string, deltas ...string) []provider.StreamPart {
	parts := []provider.StreamPart{provider.StreamStart{}, provider.TextStart{ID: id}}
	for _, d := range deltas {
		parts = append(parts, provider.TextDelta{ID: id, Delta: d})
	}
	return append(parts,
		provider.TextEnd{ID: id},
		provider.Finish{FinishReason: provider.FinishStop, Usage: provider.Usage{InputTokens: 1, OutputTokens: len(deltas), TotalTokens: 1 + len(deltas)}},
	)
}

func usage(in, out int) provider.Usage {
	return provider.Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}

// fastRetries shortens the model retry backoff for the duration of a test.
func fastRetries(t *testing.T) {
	t.Helper()
	prev := retryInitialDelay
	retryInitialDelay = time.Millisecond
	t.Cleanup(func() { retryInitialDelay = prev })
}

type fakeEmbeddingModel struct {
	maxPerCall int
	parallel   bool

	mu    sync.Mutex
	calls [][]string

	embed func(values []string) (*provider.EmbedResponse, error)
}

func (m *fakeEmbeddingModel) SpecificationVersion() string { return provider.SpecificationVersion }
func (m *fakeEmbeddingModel) Provider() string             { return "fake" }
func (m *fakeEmbeddingModel) ModelID() string              { return "fake-embedding" }
func (m *fakeEmbeddingModel) MaxEmbeddingsPerCall() int    { return m.maxPerCall }
func (m *fakeEmbeddingModel) SupportsParallelCalls() bool  { return m.parallel }

func (m *fakeEmbeddingModel) DoEmbed(ctx context.Context, opts provider.EmbedOptions) (*provider.EmbedResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), opts.Values...))
	m.mu.Unlock()
	if m.embed != nil {
		return m.embed(opts.Values)
	}
	out := make([][]float32, len(opts.Values))
	for i, v := range opts.Values {
		out[i] = []float32{float32(len(v)), 1}
	}
	return &provider.EmbedResponse{Embeddings: out, Usage: &provider.EmbeddingUsage{Tokens: len(opts.Values)}}, nil
}

type fakeImageModel struct {
	id         string
	maxPerCall int

	mu    sync.Mutex
	calls []provider.ImageCallOptions

	generate func(opts provider.ImageCallOptions) (*provider.ImageResponse, error)
}

func (m *fakeImageModel) SpecificationVersion() string { return provider.SpecificationVersion }
func (m *fakeImageModel) Provider() string             { return "fake" }
func (m *fakeImageModel) MaxImagesPerCall() int        { return m.maxPerCall }

func (m *fakeImageModel) ModelID() string {
	if m.id == "" {
		return "fake-image"
	}
	return m.id
}

func (m *fakeImageModel) DoGenerate(ctx context.Context, opts provider.ImageCallOptions) (*provider.ImageResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()
	if m.generate != nil {
		return m.generate(opts)
	}
	images := make([]provider.Image, opts.N)
	for i := range images {
		images[i] = provider.Image{Bytes: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}}
	}
	return &provider.ImageResponse{Images: images}, nil
}

type fakeRerankingModel struct {
	mu    sync.Mutex
	calls []provider.RerankOptions

	rerank func(opts provider.RerankOptions) (*provider.RerankResponse, error)
}

func (m *fakeRerankingModel) SpecificationVersion() string { return provider.SpecificationVersion }
func (m *fakeRerankingModel) Provider() string             { return "fake" }
func (m *fakeRerankingModel) ModelID() string              { return "fake-rerank" }

func (m *fakeRerankingModel) DoRerank(ctx context.Context, opts provider.RerankOptions) (*provider.RerankResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()
	return m.rerank(opts)
}

type fakeSpeechModel struct {
	generate func(opts provider.SpeechOptions) (*provider.SpeechResponse, error)
}

func (m *fakeSpeechModel) SpecificationVersion() string { return provider.SpecificationVersion }
func (m *fakeSpeechModel) Provider() string             { return "fake" }
func (m *fakeSpeechModel) ModelID() string              { return "fake-tts" }

func (m *fakeSpeechModel) DoGenerate(ctx context.Context, opts provider.SpeechOptions) (*provider.SpeechResponse, error) {
	return m.generate(opts)
}

type fakeTranscriptionModel struct {
	transcribe func(opts provider.TranscriptionOptions) (*provider.TranscriptionResponse, error)
}

func (m *fakeTranscriptionModel) SpecificationVersion() string { return provider.SpecificationVersion }
func (m *fakeTranscriptionModel) Provider() string             { return "fake" }
func (m *fakeTranscriptionModel) ModelID() string              { return "fake-stt" }

func (m *fakeTranscriptionModel) DoTranscribe(ctx context.Context, opts provider.TranscriptionOptions) (*provider.TranscriptionResponse, error) {
	return m.transcribe(opts)
}

func intPtr(v int) *int { return &v }

// collectParts drains a stream result's FullStream.
func collectParts(s *StreamResult) []StreamPart {
	var out []StreamPart
	for p := range s.FullStream() {
		out = append(out, p)
	}
	return out
}

func partTypes(parts []StreamPart) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = fmt.Sprintf("%T", p)[3:]
	}
	return out
}
