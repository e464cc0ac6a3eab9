// Package image assembles the release container images. Each executable
// becomes one multi-platform OCI image index: the pre-built binary is the
// only layer added on top of a minimal base, marked executable and set as the
// sole entrypoint with an empty default argument.
package image

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// DefaultBase is the shared minimal base image. It carries a certificate
// store and nothing else.
const DefaultBase = "gcr.io/distroless/static-debian12"

// Assembler builds multi-platform image indexes from pre-fetched binaries.
type Assembler struct {
	// BaseRef names the base image. Empty means build from scratch, which
	// tests use to stay off the network.
	BaseRef string
}

// Input is one assembly invocation: a target plus one local binary per
// platform.
type Input struct {
	Target Target
	// Binaries maps "os/arch" to the local path of the fetched binary.
	Binaries map[string]string
}

// Assemble builds the index spanning every platform in in.Binaries and
// writes it to layoutDir as an OCI layout. It returns the index digest.
// A missing binary path is fatal for the invocation; nothing is retried.
func (a *Assembler) Assemble(ctx context.Context, in Input, layoutDir string) (string, error) {
	if len(in.Binaries) == 0 {
		return "", fmt.Errorf("image: no binaries for target %s", in.Target.Name)
	}

	// Deterministic platform order keeps index digests stable across runs.
	platforms := make([]string, 0, len(in.Binaries))
	for p := range in.Binaries {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	idx := mutate.IndexMediaType(empty.Index, types.OCIImageIndex)
	for _, platform := range platforms {
		plat, err := v1.ParsePlatform(platform)
		if err != nil {
			return "", fmt.Errorf("image: bad platform %q: %w", platform, err)
		}
		img, err := a.assembleOne(ctx, in.Target, *plat, in.Binaries[platform])
		if err != nil {
			return "", fmt.Errorf("image: %s %s: %w", in.Target.Name, platform, err)
		}
		idx = mutate.AppendManifests(idx, mutate.IndexAddendum{
			Add:        img,
			Descriptor: v1.Descriptor{Platform: plat},
		})
	}

	if _, err := layout.Write(layoutDir, idx); err != nil {
		return "", fmt.Errorf("image: write layout %s: %w", layoutDir, err)
	}
	digest, err := idx.Digest()
	if err != nil {
		return "", err
	}
	return digest.String(), nil
}

// assembleOne produces the single-platform image: base, plus one layer
// holding the executable, plus the target's runtime config.
func (a *Assembler) assembleOne(ctx context.Context, t Target, plat v1.Platform, binaryPath string) (v1.Image, error) {
	base, err := a.baseImage(ctx, plat)
	if err != nil {
		return nil, fmt.Errorf("base image: %w", err)
	}

	layer, err := binaryLayer(t.Binary, binaryPath)
	if err != nil {
		return nil, err
	}
	img, err := mutate.AppendLayers(base, layer)
	if err != nil {
		return nil, err
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}
	cfg = cfg.DeepCopy()
	cfg.OS = plat.OS
	cfg.Architecture = plat.Architecture
	cfg.Config.Entrypoint = []string{t.Binary}
	// The entrypoint takes no required arguments. The single empty-string
	// default argument matches the deployed image contract.
	cfg.Config.Cmd = []string{""}
	cfg.Config.ExposedPorts = map[string]struct{}{}
	for _, port := range t.ExposedPorts {
		cfg.Config.ExposedPorts[port] = struct{}{}
	}
	cfg.Config.Env = append(cfg.Config.Env, t.Env...)

	return mutate.ConfigFile(img, cfg)
}

func (a *Assembler) baseImage(ctx context.Context, plat v1.Platform) (v1.Image, error) {
	if a.BaseRef == "" {
		return empty.Image, nil
	}
	ref, err := name.ParseReference(a.BaseRef)
	if err != nil {
		return nil, err
	}
	return remote.Image(ref, remote.WithContext(ctx), remote.WithPlatform(plat))
}

// binaryLayer wraps the fetched binary in a single-file tar layer with the
// executable bit set.
func binaryLayer(dst, src string) (v1.Layer, error) {
	content, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read binary %s: %w", src, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name:     strings.TrimPrefix(dst, "/"),
		Typeflag: tar.TypeReg,
		Mode:     0o755,
		Size:     int64(len(content)),
	}); err != nil {
		return nil, err
	}
	if _, err := tw.Write(content); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	raw := buf.Bytes()
	return tarball.LayerFromOpener(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	})
}
