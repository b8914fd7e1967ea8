// Package storage contains the object storage abstraction for uploaded
// article images. The data layer only ever stores the resulting URL string;
// image bytes never pass through the insights document.
package storage

import (
	"context"
	"io"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1
// and the implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
	URL  string
}

// Storage is an S3-compatible object storage client for image uploads.
// Methods use context and streaming readers; no local disk is used.
type Storage interface {
	// Put uploads an object under the given key and returns its info,
	// including a durable publicly reachable URL.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the durable URL for an object key.
	PublicURL(key string) string
}
