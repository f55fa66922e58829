package images

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bitop-dev/ai-sdk-go/provider"
)

func TestSplit(t *testing.T) {
	got := Split(5, 2)
	if len(got) != 3 || got[0] != 2 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("split=%v", got)
	}
	if got := Split(3, 0); len(got) != 1 || got[0] != 3 {
		t.Fatalf("split=%v", got)
	}
	if got := Split(0, 2); got != nil {
		t.Fatalf("split=%v", got)
	}
}

func TestGenerateBatched_OrdersByBatch(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	var inFlight, peak atomic.Int32

	resps, err := GenerateBatched(context.Background(), func(ctx context.Context, n int) (*provider.ImageResponse, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		imgs := make([]provider.Image, n)
		for i := range imgs {
			imgs[i] = provider.Image{Bytes: []byte{byte(n)}}
		}
		return &provider.ImageResponse{Images: imgs}, nil
	}, 5, 2, 2)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(resps) != 3 || len(resps[0].Images) != 2 || len(resps[2].Images) != 1 {
		t.Fatalf("resps=%v", resps)
	}
	if len(seen) != 3 {
		t.Fatalf("calls=%v", seen)
	}
	if peak.Load() > 2 {
		t.Fatalf("peak parallelism=%d", peak.Load())
	}
}

func TestGenerateBatched_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := GenerateBatched(context.Background(), func(ctx context.Context, n int) (*provider.ImageResponse, error) {
		return nil, boom
	}, 2, 1, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestDetectMediaType(t *testing.T) {
	cases := map[string][]byte{
		"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A},
		"image/jpeg": {0xFF, 0xD8, 0xFF, 0xE0},
		"image/webp": []byte("RIFF\x00\x00\x00\x00WEBPVP8 "),
		"image/gif":  []byte("GIF89a..."),
		"":           []byte("hello"),
	}
	for want, b := range cases {
		if got := DetectMediaType(b); got != want {
			t.Fatalf("DetectMediaType(%q)=%q want %q", b, got, want)
		}
		if got := DetectBase64MediaType(base64.StdEncoding.EncodeToString(b)); got != want {
			t.Fatalf("DetectBase64MediaType(%q)=%q want %q", b, got, want)
		}
	}
}
