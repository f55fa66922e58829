package provider

import (
	"context"
	"errors"
	"testing"
)

type stubLanguageModel struct {
	provider string
	id       string
}

func (m stubLanguageModel) SpecificationVersion() string { return SpecificationVersion }
func (m stubLanguageModel) Provider() string             { return m.provider }
func (m stubLanguageModel) ModelID() string              { return m.id }

func (m stubLanguageModel) DoGenerate(ctx context.Context, opts CallOptions) (*GenerateResponse, error) {
	return &GenerateResponse{FinishReason: FinishStop}, nil
}

func (m stubLanguageModel) DoStream(ctx context.Context, opts CallOptions) (*StreamResponse, error) {
	return &StreamResponse{Stream: NewSliceStream()}, nil
}

func TestRegistry_LanguageModel(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterLanguageModel(stubLanguageModel{provider: "fake", id: "m1"}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterLanguageModel(stubLanguageModel{provider: "fake", id: "m1"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	m, err := r.LanguageModel("fake:m1")
	if err != nil {
		t.Fatal(err)
	}
	if m.ModelID() != "m1" {
		t.Fatalf("ModelID=%q", m.ModelID())
	}

	_, err = r.LanguageModel("fake:missing")
	var nsm *NoSuchModelError
	if !errors.As(err, &nsm) {
		t.Fatalf("err=%v", err)
	}
	if nsm.ModelID != "fake:missing" || nsm.Kind != KindLanguage {
		t.Fatalf("err=%#v", nsm)
	}

	// Registered language models are not visible as other kinds.
	if _, err := r.EmbeddingModel("fake:m1"); err == nil {
		t.Fatalf("expected error for wrong kind")
	}
}

func TestRegistry_RejectsColonInProvider(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterLanguageModel(stubLanguageModel{provider: "a:b", id: "m"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSliceStream(t *testing.T) {
	boom := errors.New("boom")
	s := NewSliceStream(TextDelta{ID: "1", Delta: "a"}, TextDelta{ID: "1", Delta: "b"}).WithError(boom)
	var got string
	for s.Next() {
		got += s.Part().(TextDelta).Delta
	}
	if got != "ab" {
		t.Fatalf("got=%q", got)
	}
	if !errors.Is(s.Err(), boom) {
		t.Fatalf("Err=%v", s.Err())
	}
}

func TestMergeMetadata(t *testing.T) {
	dst := Metadata{"openai": {"a": 1, "b": 1}}
	out := MergeMetadata(dst, Metadata{"openai": {"b": 2}, "other": {"c": 3}})
	if out["openai"]["a"] != 1 || out["openai"]["b"] != 2 || out["other"]["c"] != 3 {
		t.Fatalf("out=%#v", out)
	}
}
