package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tfshrms.cloud/hrms/core"
	hrms "tfshrms.cloud/hrms/hrms/core"
)

var (
	legacyDSN   string
	mappingPath string
)

func init() {
	for _, cmd := range []*cobra.Command{importLegacyCmd, verifyLegacyCmd} {
		cmd.Flags().StringVar(&legacyDSN, "legacy-dsn", os.Getenv("HRMS_LEGACY_DSN"), "DSN of the legacy MySQL database")
		cmd.Flags().StringVar(&mappingPath, "mapping", "", "YAML file overriding the legacy column mapping")
		rootCmd.AddCommand(cmd)
	}
}

var importLegacyCmd = &cobra.Command{
	Use:   "import-legacy",
	Short: "Copy legacy comma separated member columns into the join tables",
	Long: `Reads the legacy supervisor, project member and task team columns and writes
one join row per referenced id. Rows already present are kept, so the command can
be run again after the legacy data changes. References to unknown ids are listed
in the report and skipped.

Examples:
  hrmsctl import-legacy --legacy-dsn 'user:pass@tcp(db:3306)/tfs_hrms?parseTime=true'
  hrmsctl import-legacy --mapping legacy.yaml`,
	RunE: runImportLegacy,
}

var verifyLegacyCmd = &cobra.Command{
	Use:   "verify-legacy",
	Short: "Compare the legacy member columns with the join tables",
	Long: `Matches every supervisor against the legacy columns in SQL and prints the
subordinates that only one side has. An empty list means both agree.`,
	RunE: runVerifyLegacy,
}

func loadMapping() (hrms.LegacyMapping, error) {
	if mappingPath == "" {
		return hrms.LoadLegacyMapping(nil)
	}
	f, err := os.Open(mappingPath)
	if err != nil {
		return hrms.LegacyMapping{}, err
	}
	defer f.Close()
	return hrms.LoadLegacyMapping(f)
}

// openLegacy connects to the legacy schema outside the shared pool.
func openLegacy(e *env) (*gorm.DB, func(), error) {
	if legacyDSN == "" {
		return nil, nil, fmt.Errorf("--legacy-dsn is required")
	}
	db, err := core.ConnectDB(legacyDSN, core.ParseLogLevel(e.cfg.Database.LogLevel))
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeDB, nil
}

func runImportLegacy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mapping, err := loadMapping()
	if err != nil {
		return err
	}
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	legacy, closeLegacy, err := openLegacy(e)
	if err != nil {
		return err
	}
	defer closeLegacy()

	report, err := hrms.ImportLegacy(ctx, legacy, e.dm.DB(ctx), mapping)
	if err != nil {
		return err
	}
	e.log.Info(ctx, "legacy import finished",
		zap.Int("supervisors", report.Supervisors),
		zap.Int("project_members", report.ProjectMembers),
		zap.Int("task_members", report.TaskMembers),
		zap.Int("unresolved", len(report.Unresolved)))
	return printJSON(cmd.OutOrStdout(), report)
}

func runVerifyLegacy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mapping, err := loadMapping()
	if err != nil {
		return err
	}
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	legacy, closeLegacy, err := openLegacy(e)
	if err != nil {
		return err
	}
	defer closeLegacy()

	mismatches, err := hrms.VerifyLegacy(ctx, legacy, e.dm.DB(ctx), mapping)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), mismatches); err != nil {
		return err
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d supervisor relations differ", len(mismatches))
	}
	return nil
}
