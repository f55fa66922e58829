package images

import (
	"bytes"
	"encoding/base64"
)

const DefaultMediaType = "image/png"

// DetectMediaType sniffs PNG, JPEG, WebP and GIF signatures. It returns ""
// when the data matches none of them.
func DetectMediaType(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png"
	case bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return "image/webp"
	case bytes.HasPrefix(b, []byte("GIF87a")), bytes.HasPrefix(b, []byte("GIF89a")):
		return "image/gif"
	}
	return ""
}

// DetectBase64MediaType decodes just enough of s to sniff its signature.
func DetectBase64MediaType(s string) string {
	// 16 base64 chars decode to 12 bytes, enough for every signature above.
	n := min(len(s), 16)
	n -= n % 4
	if n == 0 {
		return ""
	}
	head, err := base64.StdEncoding.DecodeString(s[:n])
	if err != nil {
		return ""
	}
	return DetectMediaType(head)
}
