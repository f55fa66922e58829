package provider

import "context"

type ImageModel interface {
	Model

	// MaxImagesPerCall returns the per-call limit; 0 lets the caller pick a
	// default for the model id.
	MaxImagesPerCall() int

	DoGenerate(ctx context.Context, opts ImageCallOptions) (*ImageResponse, error)
}

type ImageCallOptions struct {
	Prompt string
	N      int

	Size        string
	AspectRatio string
	Seed        *int64

	Headers         map[string]string
	ProviderOptions ProviderOptions
}

// Image holds one generated image. Either Base64 or Bytes is set; MediaType
// is optional.
type Image struct {
	Base64    string
	Bytes     []byte
	MediaType string
}

type ImageResponse struct {
	Images   []Image
	Warnings []Warning

	ProviderMetadata Metadata
	Response         ResponseMetadata
}
