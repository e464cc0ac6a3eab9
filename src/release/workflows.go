// Package release orchestrates an iroh release: fetch the pre-built platform
// binaries for a commit hash from the artifact store, assemble one
// multi-platform container image per executable, and optionally publish the
// images under the latest and release-version tags.
package release

import (
	"path"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ReleaseWorkflow runs one release end to end as a strictly sequential
// pipeline. Every step failure fails the whole run; nothing is retried and
// there is no partial success. Concurrent runs with distinct base hashes do
// not interfere, but two publishing runs of the same version race on the
// registry tags.
func ReleaseWorkflow(ctx workflow.Context, req Request) (Result, error) {
	var result Result
	if err := req.Validate(); err != nil {
		return result, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		ScheduleToStartTimeout: time.Minute,
		StartToCloseTimeout:    10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			// Missing artifacts, rejected credentials and build errors are
			// all fatal for the invocation.
			MaximumAttempts: 1,
		},
	})
	logger := workflow.GetLogger(ctx)
	logger.Info("starting release", "version", req.Version, "base_hash", req.BaseHash, "publish", req.Publish)

	var a *Activities

	if err := workflow.ExecuteActivity(ctx, a.Preflight).Get(ctx, nil); err != nil {
		return result, err
	}

	// Download all four platform binaries before any image is assembled, so
	// a hash with incomplete artifacts aborts with no tag ever created.
	for _, exe := range Executables {
		for _, platform := range Platforms {
			key := ArtifactKey(exe, platform, req.BaseHash)
			dest := req.BinaryPath(exe, platform)
			if err := workflow.ExecuteActivity(ctx, a.FetchArtifact, key, dest).Get(ctx, nil); err != nil {
				return result, err
			}
		}
	}

	result.Version = req.Version
	result.BaseHash = req.BaseHash
	result.Digests = make(map[string]string, len(Executables))

	for _, exe := range Executables {
		in := AssembleInput{
			Executable: string(exe),
			Binaries:   make(map[string]string, len(Platforms)),
			LayoutDir:  layoutDir(req, exe),
		}
		for _, platform := range Platforms {
			in.Binaries[platform.String()] = req.BinaryPath(exe, platform)
		}

		var digest string
		if err := workflow.ExecuteActivity(ctx, a.AssembleImage, in).Get(ctx, &digest); err != nil {
			return result, err
		}
		result.Digests[string(exe)] = digest
	}

	if !req.Publish {
		logger.Info("publish disabled, images stay local", "version", req.Version)
		return result, nil
	}

	for _, exe := range Executables {
		in := PushInput{
			Executable: string(exe),
			Version:    req.Version,
			LayoutDir:  layoutDir(req, exe),
		}
		var refs []string
		if err := workflow.ExecuteActivity(ctx, a.PushImage, in).Get(ctx, &refs); err != nil {
			return result, err
		}
		result.Pushed = append(result.Pushed, refs...)
	}

	event := Event{Version: req.Version, BaseHash: req.BaseHash, Digests: result.Digests}
	if err := workflow.ExecuteActivity(ctx, a.AnnounceRelease, event).Get(ctx, nil); err != nil {
		return result, err
	}

	logger.Info("release published", "version", req.Version, "refs", result.Pushed)
	return result, nil
}

func layoutDir(req Request, exe Executable) string {
	return path.Join(req.WorkDir(), "images", "iroh-"+string(exe))
}
