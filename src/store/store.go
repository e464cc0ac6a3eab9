package store

import (
	"context"
	"io"
)

// Store is a read-only view of the artifact store holding pre-built release
// binaries.
//
// Contract:
// - Fetch MUST return ErrArtifactMissing when no object exists for the key.
// - Authentication failures MUST be reported as distinct errors, never
//   collapsed into ErrArtifactMissing.
// - Returned readers are owned by the caller and must be closed.
type Store interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}
