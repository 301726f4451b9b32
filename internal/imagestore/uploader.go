package imagestore

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campuskart/campuskart/internal/metrics"
	"golang.org/x/crypto/blake2b"
)

// ErrUploadFailed is returned after every upload attempt failed.
var ErrUploadFailed = errors.New("image upload failed")

// Uploaded identifies a stored image.
type Uploaded struct {
	Key string
	URL string
}

// Uploader stores listing images and builds their public URLs.
type Uploader struct {
	store   ObjectStore
	baseURL string
	policy  RetryPolicy
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewUploader creates an Uploader. publicBaseURL is prefixed to object keys,
// e.g. "https://cdn.campus.example/listing-images".
func NewUploader(store ObjectStore, publicBaseURL string, policy RetryPolicy, logger *slog.Logger, recorder metrics.Recorder) *Uploader {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Uploader{
		store:   store,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		policy:  policy,
		logger:  logger.With("component", "imagestore"),
		metrics: recorder,
	}
}

// PublicBaseURL derives the public URL prefix for a bucket on endpoint.
func PublicBaseURL(endpoint, bucket string, useSSL bool) string {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(endpoint, "/") + "/" + bucket
}

// ObjectKey returns the key for img under listingID. The content hash keeps
// replacement images for one listing distinct.
func ObjectKey(listingID string, img *Image) string {
	sum := blake2b.Sum256(img.Data)
	return "listings/" + listingID + "/" + hex.EncodeToString(sum[:8]) + img.Ext()
}

// Upload stores img with bounded, jittered retries.
func (u *Uploader) Upload(ctx context.Context, listingID string, img *Image) (*Uploaded, error) {
	key := ObjectKey(listingID, img)

	err := retry(ctx, u.policy, func(ctx context.Context) error {
		return u.store.Put(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType)
	})
	if err != nil {
		u.metrics.IncImageUpload("failed")
		u.logger.Error("image upload failed",
			slog.String("key", key),
			slog.Int("attempts", u.policy.Attempts),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	u.metrics.IncImageUpload("success")
	return &Uploaded{Key: key, URL: u.URLFor(key)}, nil
}

// Delete removes a stored image.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	return u.store.Delete(ctx, key)
}

// URLFor returns the public URL of key.
func (u *Uploader) URLFor(key string) string {
	return u.baseURL + "/" + key
}
