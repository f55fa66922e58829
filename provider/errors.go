package provider

import (
	"fmt"
	"time"
)

// Error is returned by model implementations for failed calls. Retryable and
// Status drive the SDK retry policy.
type Error struct {
	Provider  string
	Code      string
	Status    int
	Message   string
	Retryable bool
	// RetryAfter is a server supplied hint (e.g. from a Retry-After header).
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Provider != "" && e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: error", e.Provider)
	}
	return "error"
}

func (e *Error) Unwrap() error { return e.Cause }

type ModelKind string

const (
	KindLanguage      ModelKind = "languageModel"
	KindEmbedding     ModelKind = "embeddingModel"
	KindImage         ModelKind = "imageModel"
	KindReranking     ModelKind = "rerankingModel"
	KindSpeech        ModelKind = "speechModel"
	KindTranscription ModelKind = "transcriptionModel"
)

type NoSuchModelError struct {
	ModelID string
	Kind    ModelKind
}

func (e *NoSuchModelError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("no such %s: %s", e.Kind, e.ModelID)
}
