package release

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/n0computer/iroh-release/src/image"
	"github.com/n0computer/iroh-release/src/preflight"
	"github.com/n0computer/iroh-release/src/store"
)

// Announcer publishes one event per released version. A nil announcer
// disables announcements.
type Announcer interface {
	Announce(Event) error
}

// Activities holds the side-effecting half of the release pipeline. All
// activities of one run execute on the same worker and share Root, a local
// workspace directory the fetched binaries and assembled layouts live under.
type Activities struct {
	Store     store.Store
	Assembler *image.Assembler
	// Pusher is only set for publishing runs; runs with Publish=false never
	// reach an activity that uses it.
	Pusher    *image.Pusher
	Announcer Announcer
	Check     preflight.Check
	Root      string
	Log       *zap.Logger
}

// Preflight verifies credentials and endpoint resolution before the first
// fetch.
func (a *Activities) Preflight(_ context.Context) error {
	return a.Check.Run()
}

// FetchArtifact downloads one platform binary from the artifact store into
// the workspace. dest is slash-separated and relative to Root.
func (a *Activities) FetchArtifact(ctx context.Context, key, dest string) error {
	rc, err := a.Store.Fetch(ctx, key)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", key, err)
	}
	defer rc.Close()

	full := filepath.Join(a.Root, filepath.FromSlash(dest))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", full, err)
	}

	a.Log.Info("fetched artifact", zap.String("key", key), zap.Int64("bytes", n))
	return nil
}

// AssembleInput names one image assembly invocation. Paths are
// slash-separated and relative to the workspace root.
type AssembleInput struct {
	Executable string            `json:"executable"`
	Binaries   map[string]string `json:"binaries"`
	LayoutDir  string            `json:"layout_dir"`
}

// AssembleImage builds the multi-platform index for one executable and
// writes it to the workspace as an OCI layout. Returns the index digest.
func (a *Activities) AssembleImage(ctx context.Context, in AssembleInput) (string, error) {
	target, err := image.TargetFor(in.Executable)
	if err != nil {
		return "", err
	}

	binaries := make(map[string]string, len(in.Binaries))
	for platform, rel := range in.Binaries {
		binaries[platform] = filepath.Join(a.Root, filepath.FromSlash(rel))
	}
	layoutDir := filepath.Join(a.Root, filepath.FromSlash(in.LayoutDir))

	digest, err := a.Assembler.Assemble(ctx, image.Input{Target: target, Binaries: binaries}, layoutDir)
	if err != nil {
		return "", err
	}

	a.Log.Info("assembled image",
		zap.String("image", target.Name),
		zap.String("digest", digest),
		zap.Int("platforms", len(binaries)))
	return digest, nil
}

// PushInput names one publish invocation for an already assembled layout.
type PushInput struct {
	Executable string `json:"executable"`
	Version    string `json:"version"`
	LayoutDir  string `json:"layout_dir"`
}

// PushImage uploads one index under both the floating latest tag and the
// literal version tag. Returns every reference written.
func (a *Activities) PushImage(ctx context.Context, in PushInput) ([]string, error) {
	if a.Pusher == nil {
		return nil, fmt.Errorf("push requested but no registry configured")
	}
	target, err := image.TargetFor(in.Executable)
	if err != nil {
		return nil, err
	}

	layoutDir := filepath.Join(a.Root, filepath.FromSlash(in.LayoutDir))
	var refs []string
	for _, tag := range []string{in.Version, "latest"} {
		ref, err := a.Pusher.Push(ctx, layoutDir, target.Name, tag)
		if err != nil {
			return nil, err
		}
		a.Log.Info("pushed image", zap.String("ref", ref))
		refs = append(refs, ref)
	}
	return refs, nil
}

// AnnounceRelease emits the release event. Runs without an announcer skip
// silently.
func (a *Activities) AnnounceRelease(_ context.Context, event Event) error {
	if a.Announcer == nil {
		a.Log.Debug("no announcer configured, skipping release event")
		return nil
	}
	if err := a.Announcer.Announce(event); err != nil {
		return fmt.Errorf("announce %s: %w", event.Version, err)
	}
	a.Log.Info("announced release", zap.String("version", event.Version))
	return nil
}
