package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	hrms "tfshrms.cloud/hrms/hrms/core"
	"tfshrms.cloud/hrms/infrastructure/communication"
	"tfshrms.cloud/hrms/infrastructure/filesystem"
)

var sweepDryRun bool

func init() {
	sweepFilesCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "list orphaned files without deleting them")
	rootCmd.AddCommand(sweepFilesCmd)
}

var sweepFilesCmd = &cobra.Command{
	Use:   "sweep-files",
	Short: "Delete stored files no active tracker or project references",
	Long: `Lists the tracker and project upload directories in the configured bucket and
deletes every file no active row references. Such files are left behind when a
cleanup after a failed write does not succeed.

Examples:
  hrmsctl sweep-files --dry-run
  hrmsctl sweep-files`,
	RunE: runSweepFiles,
}

func runSweepFiles(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is not configured")
	}
	store, err := filesystem.NewS3Store(ctx, e.cfg.Storage.Bucket, e.cfg.Storage.Prefix, e.cfg.Storage.PublicBaseURL)
	if err != nil {
		return err
	}

	report, err := hrms.SweepFiles(ctx, e.dm.DB(ctx), store, e.log, sweepDryRun)
	if err != nil {
		return err
	}
	total := 0
	for dir, names := range report {
		total += len(names)
		e.log.Info(ctx, "orphaned files", zap.String("dir", dir), zap.Int("count", len(names)), zap.Bool("dry_run", sweepDryRun))
	}
	if token := e.cfg.Slack.Token.Value(); token != "" && total > 0 && !sweepDryRun {
		slack := communication.NewSlack(token, communication.SlackOption{
			InfoChannelID:  e.cfg.Slack.InfoChannelID,
			ErrorChannelID: e.cfg.Slack.ErrorChannelID,
			Source:         "hrmsctl",
		})
		if err := slack.Info(fmt.Sprintf("sweep-files removed %d orphaned files from %s", total, e.cfg.Storage.Bucket)); err != nil {
			e.log.Warn(ctx, "failed to post sweep summary", zap.Error(err))
		}
	}
	return printJSON(cmd.OutOrStdout(), report)
}
