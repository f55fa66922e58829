package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/bitop-dev/ai-sdk-go/internal/images"
	"github.com/bitop-dev/ai-sdk-go/provider"
)

type GenerateImageRequest struct {
	Model  provider.ImageModel
	Prompt string

	// N defaults to 1.
	N           int
	Size        string
	AspectRatio string
	Seed        *int64

	// MaxImagesPerCall overrides the model's limit. When both are 0 a
	// default for known model ids applies.
	MaxImagesPerCall int
	// MaxParallelCalls defaults to 4.
	MaxParallelCalls int

	MaxRetries      *int
	Headers         map[string]string
	ProviderOptions ProviderOptions
	Timeout         time.Duration
	Logger          *slog.Logger
}

type GenerateImageResult struct {
	// Image is the first of Images.
	Image  GeneratedFile
	Images []GeneratedFile

	Warnings         []Warning
	ProviderMetadata ProviderMetadata
	Responses        []provider.ResponseMetadata
}

// GenerateImage generates req.N images, splitting the request into calls
// the model accepts. Images keep the order of the calls that produced them.
func GenerateImage(ctx context.Context, req GenerateImageRequest) (*GenerateImageResult, error) {
	ctx, cancel := applyTimeout(ctx, req.Timeout)
	defer cancel()

	if err := checkSpecificationVersion(req.Model); err != nil {
		return nil, err
	}
	if req.Prompt == "" {
		return nil, &InvalidArgumentError{Parameter: "prompt", Reason: "prompt is required"}
	}
	n := req.N
	if n == 0 {
		n = 1
	}
	if n < 0 {
		return nil, &InvalidArgumentError{Parameter: "n", Value: req.N, Reason: "must be >= 1"}
	}
	retrier, err := PrepareRetries(req.MaxRetries, orDiscard(req.Logger))
	if err != nil {
		return nil, err
	}

	maxPerCall := req.MaxImagesPerCall
	if maxPerCall <= 0 {
		maxPerCall = req.Model.MaxImagesPerCall()
	}
	if maxPerCall <= 0 {
		maxPerCall = defaultMaxImagesPerCall(req.Model.ModelID())
	}

	call := func(ctx context.Context, count int) (*provider.ImageResponse, error) {
		return retryCall(ctx, retrier, func(ctx context.Context) (*provider.ImageResponse, error) {
			return req.Model.DoGenerate(ctx, provider.ImageCallOptions{
				Prompt:          req.Prompt,
				N:               count,
				Size:            req.Size,
				AspectRatio:     req.AspectRatio,
				Seed:            req.Seed,
				Headers:         cloneStringMap(req.Headers),
				ProviderOptions: req.ProviderOptions,
			})
		})
	}
	resps, err := images.GenerateBatched(ctx, call, n, maxPerCall, req.MaxParallelCalls)
	if err != nil {
		if ctx.Err() != nil {
			return nil, abortedErr(ctx)
		}
		return nil, mapModelError(err)
	}

	out := &GenerateImageResult{}
	for _, resp := range resps {
		for _, img := range resp.Images {
			if len(img.Bytes) == 0 && img.Base64 == "" {
				continue
			}
			out.Images = append(out.Images, generatedImage(img))
		}
		out.Warnings = append(out.Warnings, resp.Warnings...)
		out.ProviderMetadata = provider.MergeMetadata(out.ProviderMetadata, resp.ProviderMetadata)
		out.Responses = append(out.Responses, resp.Response)
	}
	if len(out.Images) == 0 {
		return nil, &NoImageGeneratedError{Provider: req.Model.Provider(), Responses: out.Responses}
	}
	out.Image = out.Images[0]
	return out, nil
}

func generatedImage(img provider.Image) GeneratedFile {
	f := GeneratedFile{MediaType: img.MediaType}
	if len(img.Bytes) > 0 {
		f.Data = DataFromBytes(img.Bytes)
		if f.MediaType == "" {
			f.MediaType = images.DetectMediaType(img.Bytes)
		}
	} else {
		f.Data = DataFromBase64(img.Base64)
		if f.MediaType == "" {
			f.MediaType = images.DetectBase64MediaType(img.Base64)
		}
	}
	if f.MediaType == "" {
		f.MediaType = images.DefaultMediaType
	}
	return f
}

func defaultMaxImagesPerCall(modelID string) int {
	switch modelID {
	case "dall-e-2":
		return 10
	default:
		return 1
	}
}
