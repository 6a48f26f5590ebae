package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Gthorpe2274/mocha-emig/internal/config"
	"github.com/Gthorpe2274/mocha-emig/internal/store"
	"github.com/Gthorpe2274/mocha-emig/pkg/log"
	"github.com/Gthorpe2274/mocha-emig/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Migrating the db")
		defer zap.S().Info("Db migrated")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if cfg.Service.MigrationFolder != "" {
			return migrations.MigrateStore(db, cfg.Service.MigrationFolder)
		}
		return s.InitialMigration()
	},
}
