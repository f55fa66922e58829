package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitop-dev/ai-sdk-go/internal/embeddings"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

type EmbeddingUsage = provider.EmbeddingUsage

type EmbedManyRequest struct {
	Model  provider.EmbeddingModel
	Values []string

	// MaxParallelCalls bounds concurrent calls when the model supports them.
	// 0 means unlimited.
	MaxParallelCalls int

	MaxRetries      *int
	Headers         map[string]string
	ProviderOptions ProviderOptions
	Timeout         time.Duration
	Logger          *slog.Logger
}

type EmbedManyResult struct {
	Values     []string
	Embeddings [][]float32
	Usage      EmbeddingUsage

	ProviderMetadata ProviderMetadata
	// Responses holds one entry per provider call, in batch order.
	Responses []*provider.ResponseMetadata
}

type EmbedRequest struct {
	Model provider.EmbeddingModel
	Value string

	MaxRetries      *int
	Headers         map[string]string
	ProviderOptions ProviderOptions
	Timeout         time.Duration
	Logger          *slog.Logger
}

type EmbedResult struct {
	Value     string
	Embedding []float32
	Usage     EmbeddingUsage

	ProviderMetadata ProviderMetadata
	Response         *provider.ResponseMetadata
}

// EmbedMany embeds values, splitting them into batches the model accepts.
// Embeddings are returned in input order.
func EmbedMany(ctx context.Context, req EmbedManyRequest) (*EmbedManyResult, error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	if err := checkSpecificationVersion(req.Model); err != nil {
		return nil, err
	}
	if req.MaxParallelCalls < 0 {
		return nil, &InvalidArgumentError{Parameter: "maxParallelCalls", Value: req.MaxParallelCalls, Reason: "must be >= 0"}
	}
	retrier, err := PrepareRetries(req.MaxRetries, orDiscard(req.Logger))
	if err != nil {
		return nil, err
	}
	if len(req.Values) == 0 {
		return &EmbedManyResult{Values: []string{}, Embeddings: [][]float32{}}, nil
	}

	parallel := 1
	if req.Model.SupportsParallelCalls() {
		parallel = req.MaxParallelCalls
	}
	call := func(ctx context.Context, values []string) (*provider.EmbedResponse, error) {
		return retryCall(ctx, retrier, func(ctx context.Context) (*provider.EmbedResponse, error) {
			return req.Model.DoEmbed(ctx, provider.EmbedOptions{
				Values:          values,
				Headers:         cloneStringMap(req.Headers),
				ProviderOptions: req.ProviderOptions,
			})
		})
	}

	out, err := embeddings.EmbedMany(ctx, call, req.Values, req.Model.MaxEmbeddingsPerCall(), parallel)
	if err != nil {
		if ctx.Err() != nil {
			return nil, abortedErr(ctx)
		}
		return nil, mapModelError(err)
	}
	return &EmbedManyResult{
		Values:           append([]string(nil), req.Values...),
		Embeddings:       out.Embeddings,
		Usage:            EmbeddingUsage{Tokens: out.Tokens},
		ProviderMetadata: out.ProviderMetadata,
		Responses:        out.Responses,
	}, nil
}

// Embed embeds a single value.
func Embed(ctx context.Context, req EmbedRequest) (*EmbedResult, error) {
	res, err := EmbedMany(ctx, EmbedManyRequest{
		Model:            req.Model,
		Values:           []string{req.Value},
		MaxParallelCalls: 1,
		MaxRetries:       req.MaxRetries,
		Headers:          req.Headers,
		ProviderOptions:  req.ProviderOptions,
		Timeout:          req.Timeout,
		Logger:           req.Logger,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(res.Embeddings))
	}
	out := &EmbedResult{
		Value:            req.Value,
		Embedding:        res.Embeddings[0],
		Usage:            res.Usage,
		ProviderMetadata: res.ProviderMetadata,
	}
	if len(res.Responses) > 0 {
		out.Response = res.Responses[0]
	}
	return out, nil
}
