package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/n0computer/iroh-release/src/image"
)

var (
	temporalAddress   string
	temporalNamespace string
	taskQueue         string
	workDir           string
	registryNamespace string
	baseImage         string
	storeEndpoint     string
	storeBucket       string
	storeDir          string
	storeInsecure     bool
	kafkaBrokers      string
	kafkaTopic        string
)

var rootCmd = &cobra.Command{
	Use:   "iroh-release",
	Short: "iroh container release tool",
	Long: `Builds and publishes the iroh-relay and iroh-dns-server container
images from pre-built binaries in the artifact store.`,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&temporalAddress, "temporal-address", "127.0.0.1:7233", "Temporal frontend address")
	pf.StringVar(&temporalNamespace, "temporal-namespace", "default", "Temporal namespace")
	pf.StringVar(&taskQueue, "task-queue", "releaseTaskQueue", "Temporal task queue for release runs")
	pf.StringVar(&workDir, "workdir", os.TempDir(), "Workspace root for fetched binaries and image layouts")
	pf.StringVar(&registryNamespace, "registry-namespace", "n0computer", "Registry namespace images are pushed under")
	pf.StringVar(&baseImage, "base-image", image.DefaultBase, "Base image reference, empty builds from scratch")
	pf.StringVar(&storeEndpoint, "store-endpoint", "s3.amazonaws.com", "Artifact store endpoint")
	pf.StringVar(&storeBucket, "store-bucket", "iroh-artifacts", "Artifact store bucket")
	pf.StringVar(&storeDir, "store-dir", "", "Use a local directory as the artifact store instead of S3")
	pf.BoolVar(&storeInsecure, "store-insecure", false, "Disable TLS towards the artifact store")
	pf.StringVar(&kafkaBrokers, "kafka-brokers", "", "Kafka bootstrap servers for release events, empty disables")
	pf.StringVar(&kafkaTopic, "kafka-topic", "iroh_releases", "Kafka topic for release events")
}

// Execute is the top line function for all CLI commands.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
