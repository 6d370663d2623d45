// Package storage provides blob-store providers for archiving run artifacts.
package storage

import "context"

// NoOpBlobStore discards artifacts. It is the default when no archive
// bucket is configured.
type NoOpBlobStore struct{}

// PutObject does nothing and returns an empty URI.
func (NoOpBlobStore) PutObject(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}
