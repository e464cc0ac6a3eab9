package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
)

// LocalFS is a directory-backed artifact store. It serves test runs and
// air-gapped releases where the binaries were copied onto the worker ahead
// of time.
type LocalFS struct {
	root string
}

// NewLocalFS opens a store rooted at root. The directory must already exist;
// a release run never creates store content.
func NewLocalFS(root string) (*LocalFS, error) {
	if root == "" {
		return nil, errors.New("store: root directory is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("store: root is not a directory")
	}
	return &LocalFS{root: root}, nil
}

func (s *LocalFS) Fetch(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Clean(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactMissing
		}
		return nil, err
	}
	return f, nil
}
