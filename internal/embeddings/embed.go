package embeddings

import (
	"context"
	"fmt"

	"github.com/bitop-dev/ai-sdk-go/provider"
	"golang.org/x/sync/errgroup"
)

type Batch struct{ Start, End int }

// Split chunks n values into batches of at most size. size <= 0 means one
// batch.
func Split(n, size int) []Batch {
	if n <= 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}
	out := make([]Batch, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, Batch{Start: start, End: min(start+size, n)})
	}
	return out
}

type Result struct {
	Embeddings [][]float32
	// Tokens is the summed usage; HasUsage reports whether any call reported it.
	Tokens           int
	HasUsage         bool
	ProviderMetadata provider.Metadata
	Responses        []*provider.ResponseMetadata
}

// EmbedMany embeds values in batches of maxPerCall using up to maxParallel
// concurrent calls. Embeddings are reassembled by input index; metadata is
// merged in batch order so later batches win on key collisions.
func EmbedMany(
	ctx context.Context,
	call func(ctx context.Context, values []string) (*provider.EmbedResponse, error),
	values []string,
	maxPerCall int,
	maxParallel int,
) (Result, error) {
	batches := Split(len(values), maxPerCall)
	resps := make([]*provider.EmbedResponse, len(batches))

	if maxParallel <= 0 {
		maxParallel = len(batches)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(maxParallel, 1))
	for i, b := range batches {
		g.Go(func() error {
			chunk := values[b.Start:b.End]
			resp, err := call(gctx, chunk)
			if err != nil {
				return err
			}
			if resp == nil || len(resp.Embeddings) != len(chunk) {
				got := 0
				if resp != nil {
					got = len(resp.Embeddings)
				}
				return fmt.Errorf("embedding response count mismatch: got %d want %d", got, len(chunk))
			}
			resps[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Result{Embeddings: make([][]float32, len(values))}
	for i, resp := range resps {
		copy(res.Embeddings[batches[i].Start:], resp.Embeddings)
		if resp.Usage != nil {
			res.Tokens += resp.Usage.Tokens
			res.HasUsage = true
		}
		res.ProviderMetadata = provider.MergeMetadata(res.ProviderMetadata, resp.ProviderMetadata)
		if resp.Response != nil {
			res.Responses = append(res.Responses, resp.Response)
		}
	}
	return res, nil
}
