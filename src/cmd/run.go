package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/n0computer/iroh-release/src/announce"
	"github.com/n0computer/iroh-release/src/image"
	"github.com/n0computer/iroh-release/src/preflight"
	"github.com/n0computer/iroh-release/src/release"
	"github.com/n0computer/iroh-release/src/store"
)

// registryHost is the endpoint the preflight resolves before a publishing
// run. Pushes go to Docker Hub.
const registryHost = "index.docker.io"

var (
	releaseVersion string
	baseHash       string
	publish        bool
)

func init() {
	runCmd.Flags().StringVar(&releaseVersion, "release-version", "", "Version tag for the released images, e.g. v0.1.0")
	runCmd.Flags().StringVar(&baseHash, "base-hash", "", "Commit hash the binaries were built and uploaded for")
	runCmd.Flags().BoolVar(&publish, "publish", false, "Push the built images to the registry")
	_ = runCmd.MarkFlagRequired("release-version")
	_ = runCmd.MarkFlagRequired("base-hash")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one release end to end",
	Long: `Fetches the four platform binaries for the given commit hash, assembles
the iroh-relay and iroh-dns-server multi-platform images, tags them with
latest and the release version, and pushes them when --publish is set.
Any missing artifact, rejected credential or build error aborts the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()

		activities, err := buildActivities(logger, publish)
		if err != nil {
			return err
		}

		temporalClient, err := client.Dial(client.Options{
			HostPort:  temporalAddress,
			Namespace: temporalNamespace,
			Logger:    buildTemporalLogger(),
		})
		if err != nil {
			return fmt.Errorf("dial temporal at %s: %w", temporalAddress, err)
		}
		defer temporalClient.Close()

		w := worker.New(temporalClient, taskQueue, worker.Options{})
		w.RegisterWorkflow(release.ReleaseWorkflow)
		w.RegisterActivity(activities)
		if err := w.Start(); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
		defer w.Stop()
		logger.Info("started worker", zap.String("task_queue", taskQueue))

		req := release.Request{Version: releaseVersion, BaseHash: baseHash, Publish: publish}
		run, err := temporalClient.ExecuteWorkflow(cmd.Context(), client.StartWorkflowOptions{
			ID:                       fmt.Sprintf("iroh-release-%s-%s", req.Version, req.BaseHash),
			TaskQueue:                taskQueue,
			WorkflowExecutionTimeout: time.Hour,
		}, release.ReleaseWorkflow, req)
		if err != nil {
			return fmt.Errorf("start release workflow: %w", err)
		}

		var result release.Result
		if err := run.Get(cmd.Context(), &result); err != nil {
			return fmt.Errorf("release %s failed: %w", req.Version, err)
		}

		logger.Info("release finished",
			zap.String("version", result.Version),
			zap.Any("digests", result.Digests),
			zap.Strings("pushed", result.Pushed))
		return nil
	},
}

// buildActivities wires the artifact store, image assembler, registry pusher
// and announcer. With withPusher set, missing registry credentials fail
// here, before any workflow starts.
func buildActivities(logger *zap.Logger, withPusher bool) (*release.Activities, error) {
	check := preflight.Check{}

	var artifacts store.Store
	if storeDir != "" {
		local, err := store.NewLocalFS(storeDir)
		if err != nil {
			return nil, err
		}
		artifacts = local
	} else {
		s3, err := store.NewS3(store.S3Config{
			Endpoint: storeEndpoint,
			Bucket:   storeBucket,
			Insecure: storeInsecure,
		})
		if err != nil {
			return nil, err
		}
		artifacts = s3
		check.Env = append(check.Env, store.EnvS3AccessKey, store.EnvS3SecretKey)
		check.Hosts = append(check.Hosts, hostOnly(storeEndpoint))
	}

	var pusher *image.Pusher
	if withPusher {
		p, err := image.NewPusher(registryNamespace)
		if err != nil {
			return nil, err
		}
		pusher = p
		check.Env = append(check.Env, image.EnvRegistryUser, image.EnvRegistryPassword)
		check.Hosts = append(check.Hosts, registryHost)
	}

	var announcer release.Announcer
	if kafkaBrokers != "" {
		k, err := announce.NewKafka(kafkaBrokers, kafkaTopic)
		if err != nil {
			return nil, err
		}
		announcer = k
	}

	return &release.Activities{
		Store:     artifacts,
		Assembler: &image.Assembler{BaseRef: baseImage},
		Pusher:    pusher,
		Announcer: announcer,
		Check:     check,
		Root:      workDir,
		Log:       logger,
	}, nil
}

func buildTemporalLogger() log.Logger {
	return log.NewStructuredLogger(
		slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})))
}

func hostOnly(endpoint string) string {
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}
	return endpoint
}
