package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/combiner"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/config"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/health"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/server"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/storage"
	"github.com/oleg-kozlyuk-grafana/go-understory/internal/uploader"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	// CLI flags
	combinePrefix string
	combineOutput string
	combineWorker int
	combineMax    int
	servePort     int
)

func main() {
	health.LayerVersion = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "understory",
	Short: "Understory - coverage collection for AWS Lambda",
	Long: `Understory collects per-invocation code coverage from Lambda functions,
stores the resulting profiles in object storage, and combines them into
consolidated coverage reports.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Understory %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Combine stored coverage files into one consolidated report",
	RunE:  runCombine,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print the layer health report as JSON",
	RunE:  runHealth,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the health endpoint over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(versionCmd, combineCmd, healthCmd, serveCmd)

	combineCmd.Flags().StringVar(&combinePrefix, "prefix", "", "key prefix to combine (defaults to the configured prefix)")
	combineCmd.Flags().StringVar(&combineOutput, "output-key", "", "explicit output key for the combined report")
	combineCmd.Flags().IntVar(&combineWorker, "workers", 4, "parallel download workers")
	combineCmd.Flags().IntVar(&combineMax, "max-files", 0, "maximum coverage files to consume (0 = no cap)")

	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP server port")
}

func newLogger(cfg *config.CoverageConfig) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runCombine(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := cmd.Context()

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer store.Close()

	up, err := uploader.New(store, cfg, uploader.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create uploader: %w", err)
	}

	prefix := combinePrefix
	if prefix == "" {
		prefix = cfg.KeyPrefix
	}

	c := combiner.New(store, up,
		combiner.WithWorkers(combineWorker),
		combiner.WithMaxFiles(combineMax),
		combiner.WithLogger(logger))

	result := c.Combine(ctx, prefix, combineOutput)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if result.OutputLocation == "" {
		return fmt.Errorf("combine failed: no report written")
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	st := health.Check(cmd.Context())

	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if st.Status == health.StatusUnhealthy {
		return fmt.Errorf("layer is unhealthy")
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(nil)
	slog.SetDefault(logger)

	srv := server.New(server.Config{Port: servePort, Logger: logger})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("received shutdown signal", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
