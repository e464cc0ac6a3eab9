package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/n0computer/iroh-release/src/image"
	"github.com/n0computer/iroh-release/src/release"
)

func init() {
	rootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a standing release worker",
	Long: `Serves the release task queue until interrupted, so release runs can be
started from other triggers. The worker can publish only when registry
credentials are present in its environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync()

		// A standing worker serves publishing and non-publishing runs
		// alike, so the pusher is wired whenever credentials allow it.
		canPush := os.Getenv(image.EnvRegistryUser) != "" && os.Getenv(image.EnvRegistryPassword) != ""
		if !canPush {
			logger.Warn("registry credentials not set, publishing runs will fail")
		}
		activities, err := buildActivities(logger, canPush)
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

		logger.Info("serving release task queue", zap.String("task_queue", taskQueue))
		return w.Run(worker.InterruptCh())
	},
}
