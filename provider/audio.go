package provider

import "context"

type TranscriptionModel interface {
	Model

	DoTranscribe(ctx context.Context, opts TranscriptionOptions) (*TranscriptionResponse, error)
}

type TranscriptionOptions struct {
	Audio     []byte
	MediaType string
	Filename  string

	Headers         map[string]string
	ProviderOptions ProviderOptions
}

type TranscriptSegment struct {
	ID    int
	Start float64
	End   float64
	Text  string
}

type TranscriptionResponse struct {
	Text string

	Segments          []TranscriptSegment
	Language          string
	DurationInSeconds *float64

	Warnings []Warning

	ProviderMetadata Metadata
	Response         ResponseMetadata
}

type SpeechModel interface {
	Model

	DoGenerate(ctx context.Context, opts SpeechOptions) (*SpeechResponse, error)
}

type SpeechOptions struct {
	Text  string
	Voice string

	Language     string
	OutputFormat string
	Speed        *float64

	Headers         map[string]string
	ProviderOptions ProviderOptions
}

type SpeechResponse struct {
	Audio     []byte
	MediaType string

	Warnings []Warning

	ProviderMetadata Metadata
	Response         ResponseMetadata
}
