package images

import (
	"context"
	"fmt"

	"github.com/bitop-dev/ai-sdk-go/provider"
	"golang.org/x/sync/errgroup"
)

const defaultMaxParallel = 4

// Split divides n images into calls of at most maxPerCall. maxPerCall <= 0
// means a single call.
func Split(n, maxPerCall int) []int {
	if n <= 0 {
		return nil
	}
	if maxPerCall <= 0 || maxPerCall > n {
		maxPerCall = n
	}
	var counts []int
	for remaining := n; remaining > 0; remaining -= maxPerCall {
		counts = append(counts, min(maxPerCall, remaining))
	}
	return counts
}

// GenerateBatched issues one call per batch, at most maxParallel at a time.
// Responses are returned in batch order regardless of completion order.
func GenerateBatched(
	ctx context.Context,
	call func(ctx context.Context, n int) (*provider.ImageResponse, error),
	n int,
	maxPerCall int,
	maxParallel int,
) ([]*provider.ImageResponse, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be > 0")
	}
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	counts := Split(n, maxPerCall)
	out := make([]*provider.ImageResponse, len(counts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, c := range counts {
		g.Go(func() error {
			resp, err := call(gctx, c)
			if err != nil {
				return err
			}
			if resp == nil {
				resp = &provider.ImageResponse{}
			}
			out[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
