package store

import "errors"

var (
	ErrArtifactMissing = errors.New("store: artifact missing")
	ErrCredentials     = errors.New("store: credentials rejected")
)

func IsArtifactMissing(err error) bool { return errors.Is(err, ErrArtifactMissing) }
