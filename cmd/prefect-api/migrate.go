package main

import (
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/prefect-api/internal/migrations"
	"github.com/noah-isme/prefect-api/pkg/config"
	"github.com/noah-isme/prefect-api/pkg/database"
	"github.com/noah-isme/prefect-api/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long:  "Apply pending schema migrations. DB_MIGRATIONS_DIR overrides the migrations embedded in the binary.",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var source fs.FS = migrations.Embedded()
	if cfg.Database.MigrationsDir != "" {
		source = os.DirFS(cfg.Database.MigrationsDir)
	}

	applied, err := migrations.Apply(cmd.Context(), db, source)
	if err != nil {
		return err
	}
	logr.Info("migrations applied", zap.Strings("applied", applied), zap.Int("count", len(applied)))
	return nil
}
