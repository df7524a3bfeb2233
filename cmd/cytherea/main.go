// Command cytherea curates the artist database: it merges curated and
// cached records, discovers new artists, fills gaps from providers and
// audits stored genres.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sydlexius/cytherea/internal/app"
	"github.com/sydlexius/cytherea/internal/config"
	"github.com/sydlexius/cytherea/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "cytherea",
		Short:         "Curate a database of musicians with Venus signs and genres",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("CY_CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "cytherea.yaml"
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultConfig, "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(
		runCmd(g),
		discoverCmd(g),
		enrichCmd(g),
		verifyCmd(g),
		mergeCmd(g),
		reindexCmd(g),
		queryCmd(g),
		resolveCmd(g),
		classifyCmd(),
		venusCmd(),
		versionCmd(),
	)
	return cmd
}

// open loads configuration, sets up logging and opens the runtime. The
// returned cleanup closes everything in reverse order.
func (g *globals) open(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	slog.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		_ = logManager.Close()
		return nil, nil, err
	}
	a.WatchCuration(ctx)

	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Error("closing resources", slog.Any("error", err))
		}
		_ = logManager.Close()
	}
	return a, cleanup, nil
}

// withApp runs fn with an open App.
func (g *globals) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a, cleanup, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
