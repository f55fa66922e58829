package provider

import "context"

type EmbeddingModel interface {
	Model

	// MaxEmbeddingsPerCall returns the batch limit; 0 means unlimited.
	MaxEmbeddingsPerCall() int
	SupportsParallelCalls() bool

	DoEmbed(ctx context.Context, opts EmbedOptions) (*EmbedResponse, error)
}

type EmbedOptions struct {
	Values []string

	Headers         map[string]string
	ProviderOptions ProviderOptions
}

type EmbeddingUsage struct {
	Tokens int
}

type EmbedResponse struct {
	Embeddings [][]float32
	Usage      *EmbeddingUsage

	ProviderMetadata Metadata
	Response         *ResponseMetadata
}
