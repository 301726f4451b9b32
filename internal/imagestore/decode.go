// Package imagestore decodes listing images and stores them in S3-compatible object storage.
package imagestore

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrInvalidImage is returned for payloads that are not a supported image.
	ErrInvalidImage = errors.New("image must be a base64 or data URL encoded JPEG, PNG, GIF or WebP")
	// ErrImageTooLarge is returned when the decoded image exceeds the size limit.
	ErrImageTooLarge = errors.New("image too large")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a decoded listing image.
type Image struct {
	Data        []byte
	ContentType string
}

// Ext returns the file extension for the image's content type.
func (img *Image) Ext() string {
	return extensions[img.ContentType]
}

// DecodeImage accepts "data:image/png;base64,...." or bare base64.
// The content type is sniffed from the bytes, never trusted from the prefix.
func DecodeImage(raw string, maxBytes int64) (*Image, error) {
	payload := strings.TrimSpace(raw)
	if strings.HasPrefix(payload, "data:") {
		header, data, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, ErrInvalidImage
		}
		payload = data
	}
	if payload == "" {
		return nil, ErrInvalidImage
	}

	if maxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, ErrInvalidImage
		}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return nil, ErrInvalidImage
	}
	return &Image{Data: data, ContentType: contentType}, nil
}
