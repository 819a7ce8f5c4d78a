// Package storage publishes dataset archives at URLs the training service can fetch.
package storage

import (
	"context"
	"io"
)

// Uploader stores body under key and returns a URL that can be fetched
// without further credentials.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

var (
	_ Uploader = (*FileStore)(nil)
	_ Uploader = (*S3Store)(nil)
)
