package main

import (
	"fmt"

	"github.com/formcraft-io/formcraft/internal/bootstrap"
	"github.com/formcraft-io/formcraft/internal/infra/db"
	"github.com/formcraft-io/formcraft/internal/infra/logger"
	"github.com/formcraft-io/formcraft/internal/modules/repo"
	"github.com/spf13/cobra"
)

var verifyCounts bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log.Level)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		gdb, err := db.New(cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := bootstrap.Migrate(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema migrated")

		if !verifyCounts {
			return nil
		}
		n, err := bootstrap.VerifySubmissionCounts(cmd.Context(), repo.NewFormRepo(gdb), log)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%d forms have a submission counter that disagrees with their reference list", n)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&verifyCounts, "verify", false, "check every form's submission counter against its reference list")
}
