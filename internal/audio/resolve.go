package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Input is audio given inline, as base64, or by URL. The first non-empty
// source wins in that order.
type Input struct {
	Bytes     []byte
	Base64    string
	URL       string
	MediaType string
	Filename  string
}

type Resolved struct {
	Data      []byte
	MediaType string
	Filename  string
}

var defaultClient = &http.Client{Timeout: 60 * time.Second}

// Resolve loads the audio bytes of in. The media type falls back to the
// Content-Type of a download, then to the sniffed signature.
func Resolve(ctx context.Context, client *http.Client, in Input) (Resolved, error) {
	out := Resolved{MediaType: in.MediaType, Filename: defaultString(in.Filename, "audio")}
	switch {
	case len(in.Bytes) > 0:
		out.Data = in.Bytes
	case in.Base64 != "":
		b, err := base64.StdEncoding.DecodeString(in.Base64)
		if err != nil {
			return Resolved{}, fmt.Errorf("decode audio base64: %w", err)
		}
		out.Data = b
	case in.URL != "":
		b, ct, err := download(ctx, client, in.URL)
		if err != nil {
			return Resolved{}, err
		}
		out.Data = b
		if out.MediaType == "" {
			out.MediaType = ct
		}
	default:
		return Resolved{}, fmt.Errorf("audio is required (bytes, base64, or URL)")
	}
	if out.MediaType == "" {
		out.MediaType = DetectMediaType(out.Data)
	}
	return out, nil
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	if client == nil {
		client = defaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download audio from %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("download audio from %s: http status %d", url, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("download audio from %s: %w", url, err)
	}
	return b, resp.Header.Get("Content-Type"), nil
}

// DetectMediaType sniffs common audio containers. Unknown data is reported
// as audio/wav.
func DetectMediaType(b []byte) string {
	switch {
	case len(b) < 4:
	case b[0] == 'I' && b[1] == 'D' && b[2] == '3':
		return "audio/mpeg"
	case b[0] == 0xFF && (b[1] == 0xFB || b[1] == 0xFA):
		return "audio/mpeg"
	case len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE":
		return "audio/wav"
	case string(b[0:4]) == "OggS":
		return "audio/ogg"
	case string(b[0:4]) == "fLaC":
		return "audio/flac"
	case b[0] == 0xFF && (b[1] == 0xF1 || b[1] == 0xF9):
		return "audio/aac"
	case b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3:
		return "audio/webm"
	case len(b) >= 8 && string(b[4:8]) == "ftyp":
		return "audio/mp4"
	}
	return "audio/wav"
}

func defaultString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
