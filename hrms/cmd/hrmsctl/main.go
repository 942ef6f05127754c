// Package main implements hrmsctl, the operations tool for the hrms database and file store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tfshrms.cloud/hrms/core"
	"tfshrms.cloud/hrms/infrastructure/devops"
	"tfshrms.cloud/hrms/infrastructure/logging"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hrmsctl",
	Short: "Operations tool for the hrms backend",
	Long: `hrmsctl runs schema migrations, imports legacy membership columns,
removes orphaned files and issues tokens for support access.

Configuration is read the same way as the API server: the --config file,
then the SSM parameter document, then HRMS_* environment variables.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("HRMS_CONFIG"), "path to the YAML config file")
}

// env is what every subcommand starts from.
type env struct {
	cfg *devops.Config
	log *logging.Logger
	dm  *core.DatabaseManager
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := devops.Load(ctx, configPath, nil)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	dm, err := core.New(cfg.Database.DSN.Value(), cfg.Database.MaxConnections, core.ParseLogLevel(cfg.Database.LogLevel))
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, dm: dm}, nil
}

func (e *env) Close() {
	_ = e.log.Sync()
	_ = e.dm.Close()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
