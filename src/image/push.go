package image

import (
	"context"
	"fmt"
	"os"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// Registry credential environment variables, injected at workflow runtime.
const (
	EnvRegistryUser     = "DOCKER_USERNAME"
	EnvRegistryPassword = "DOCKER_PASSWORD"
)

// Pusher writes assembled indexes to the image registry.
type Pusher struct {
	// Namespace prefixes every pushed repository, e.g. "n0computer".
	Namespace string
	auth      authn.Authenticator
}

// NewPusher reads registry credentials from the environment. Missing
// credentials are a fatal error here so a publishing run aborts before it
// builds anything it cannot push.
func NewPusher(namespace string) (*Pusher, error) {
	if namespace == "" {
		return nil, fmt.Errorf("image: registry namespace is required")
	}
	user := os.Getenv(EnvRegistryUser)
	password := os.Getenv(EnvRegistryPassword)
	if user == "" || password == "" {
		return nil, fmt.Errorf("image: %s and %s must be set to publish", EnvRegistryUser, EnvRegistryPassword)
	}
	return &Pusher{
		Namespace: namespace,
		auth:      &authn.Basic{Username: user, Password: password},
	}, nil
}

// Ref returns the registry reference for an image name and tag under the
// pusher's namespace.
func (p *Pusher) Ref(imageName, tag string) string {
	return fmt.Sprintf("%s/%s:%s", p.Namespace, imageName, tag)
}

// Push uploads the index stored in layoutDir under the given tag and returns
// the reference written.
func (p *Pusher) Push(ctx context.Context, layoutDir, imageName, tag string) (string, error) {
	lp, err := layout.FromPath(layoutDir)
	if err != nil {
		return "", fmt.Errorf("image: open layout %s: %w", layoutDir, err)
	}
	idx, err := lp.ImageIndex()
	if err != nil {
		return "", err
	}

	refStr := p.Ref(imageName, tag)
	ref, err := name.ParseReference(refStr)
	if err != nil {
		return "", fmt.Errorf("image: bad reference %s: %w", refStr, err)
	}
	if err := remote.WriteIndex(ref, idx, remote.WithContext(ctx), remote.WithAuth(p.auth)); err != nil {
		return "", fmt.Errorf("image: push %s: %w", refStr, err)
	}
	return refStr, nil
}
