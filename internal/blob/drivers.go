package blob

import (
	"context"

	fsstore "opstrack/internal/infra/blob/fs"
	memorystore "opstrack/internal/infra/blob/memory"
	s3store "opstrack/internal/infra/blob/s3"
)

// NewMemory returns an in-memory blob.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem returns a filesystem blob.Store rooted at path, creating it
// if needed.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// S3Config re-exports the infra S3 configuration type.
type S3Config = s3store.Config

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return s3store.New(ctx, cfg)
}

// OpenS3FromEnv constructs an S3 store using environment variables.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	return s3store.OpenFromEnv(ctx)
}
