// Package photo converts binary photos to and from the self-contained data
// URL form persisted in the pending queue.
package photo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	dataPrefix   = "data:"
	base64Marker = ";base64,"

	// DefaultFilename is the multipart filename used when re-submitting a
	// decoded photo.
	DefaultFilename = "story-photo.jpg"
)

var (
	ErrNotDataURL   = errors.New("photo: not a base64 data URL")
	ErrEmptyPayload = errors.New("photo: empty payload")
)

// Encode returns data as "data:<mime>;base64,<payload>". An empty mimeType
// is sniffed from the content.
func Encode(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = DetectType(data)
	}
	var b strings.Builder
	b.Grow(len(dataPrefix) + len(mimeType) + len(base64Marker) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(dataPrefix)
	b.WriteString(mimeType)
	b.WriteString(base64Marker)
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// Decode reverses Encode. It returns the raw bytes and the declared MIME type.
func Decode(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, dataPrefix) {
		return nil, "", ErrNotDataURL
	}
	header, payload, ok := strings.Cut(dataURL[len(dataPrefix):], ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, "", ErrNotDataURL
	}
	mimeType := strings.TrimSuffix(header, ";base64")
	if payload == "" {
		return nil, mimeType, ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, mimeType, fmt.Errorf("photo: decode payload: %w", err)
	}
	if len(data) == 0 {
		return nil, mimeType, ErrEmptyPayload
	}
	if mimeType == "" {
		mimeType = DetectType(data)
	}
	return data, mimeType, nil
}

// IsDataURL reports whether s looks like an Encode result.
func IsDataURL(s string) bool {
	if !strings.HasPrefix(s, dataPrefix) {
		return false
	}
	header, _, ok := strings.Cut(s[len(dataPrefix):], ",")
	return ok && strings.HasSuffix(header, ";base64")
}

// DetectType sniffs the MIME type, without parameters.
func DetectType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// Filename picks a multipart filename matching the MIME type.
func Filename(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "story-photo.png"
	case "image/webp":
		return "story-photo.webp"
	case "image/gif":
		return "story-photo.gif"
	default:
		return DefaultFilename
	}
}
