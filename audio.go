package ai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bitop-dev/ai-sdk-go/internal/audio"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

type TranscriptSegment = provider.TranscriptSegment

type TranscribeRequest struct {
	Model provider.TranscriptionModel

	// Audio is loaded from bytes, base64 or URL. URLs are fetched with
	// HTTPClient, or a client with a 60s timeout when nil.
	Audio      DataContent
	MediaType  string
	Filename   string
	HTTPClient *http.Client

	MaxRetries      *int
	Headers         map[string]string
	ProviderOptions ProviderOptions
	Timeout         time.Duration
	Logger          *slog.Logger
}

type Transcript struct {
	Text              string
	Segments          []TranscriptSegment
	Language          string
	DurationInSeconds *float64

	Warnings         []Warning
	ProviderMetadata ProviderMetadata
	Response         provider.ResponseMetadata
}

func Transcribe(ctx context.Context, req TranscribeRequest) (*Transcript, error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	if err := checkSpecificationVersion(req.Model); err != nil {
		return nil, err
	}
	retrier, err := PrepareRetries(req.MaxRetries, orDiscard(req.Logger))
	if err != nil {
		return nil, err
	}
	in, err := audio.Resolve(ctx, req.HTTPClient, audio.Input{
		Bytes:     req.Audio.Bytes,
		Base64:    req.Audio.Base64,
		URL:       req.Audio.URL,
		MediaType: req.MediaType,
		Filename:  req.Filename,
	})
	if err != nil {
		return nil, &InvalidArgumentError{Parameter: "audio", Reason: err.Error()}
	}

	out, err := retryCall(ctx, retrier, func(ctx context.Context) (*provider.TranscriptionResponse, error) {
		return req.Model.DoTranscribe(ctx, provider.TranscriptionOptions{
			Audio:           in.Data,
			MediaType:       in.MediaType,
			Filename:        in.Filename,
			Headers:         cloneStringMap(req.Headers),
			ProviderOptions: req.ProviderOptions,
		})
	})
	if err != nil {
		return nil, err
	}
	if out.Text == "" {
		return nil, &NoTranscriptGeneratedError{Provider: req.Model.Provider(), Response: out.Response}
	}
	return &Transcript{
		Text:              out.Text,
		Segments:          out.Segments,
		Language:          out.Language,
		DurationInSeconds: out.DurationInSeconds,
		Warnings:          out.Warnings,
		ProviderMetadata:  out.ProviderMetadata,
		Response:          out.Response,
	}, nil
}

type GenerateSpeechRequest struct {
	Model provider.SpeechModel

	Text         string
	Voice        string
	Language     string
	OutputFormat string
	Speed        *float64

	MaxRetries      *int
	Headers         map[string]string
	ProviderOptions ProviderOptions
	Timeout         time.Duration
	Logger          *slog.Logger
}

type SpeechResult struct {
	Audio GeneratedFile

	Warnings         []Warning
	ProviderMetadata ProviderMetadata
	Response         provider.ResponseMetadata
}

func GenerateSpeech(ctx context.Context, req GenerateSpeechRequest) (*SpeechResult, error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	if err := checkSpecificationVersion(req.Model); err != nil {
		return nil, err
	}
	if req.Text == "" {
		return nil, &InvalidArgumentError{Parameter: "text", Reason: "text is required"}
	}
	retrier, err := PrepareRetries(req.MaxRetries, orDiscard(req.Logger))
	if err != nil {
		return nil, err
	}

	out, err := retryCall(ctx, retrier, func(ctx context.Context) (*provider.SpeechResponse, error) {
		return req.Model.DoGenerate(ctx, provider.SpeechOptions{
			Text:            req.Text,
			Voice:           req.Voice,
			Language:        req.Language,
			OutputFormat:    req.OutputFormat,
			Speed:           req.Speed,
			Headers:         cloneStringMap(req.Headers),
			ProviderOptions: req.ProviderOptions,
		})
	})
	if err != nil {
		return nil, err
	}
	if len(out.Audio) == 0 {
		return nil, &NoSpeechGeneratedError{Provider: req.Model.Provider(), Response: out.Response}
	}
	mt := out.MediaType
	if mt == "" {
		mt = audio.DetectMediaType(out.Audio)
	}
	return &SpeechResult{
		Audio:            GeneratedFile{MediaType: mt, Data: DataFromBytes(out.Audio)},
		Warnings:         out.Warnings,
		ProviderMetadata: out.ProviderMetadata,
		Response:         out.Response,
	}, nil
}
