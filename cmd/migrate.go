package cmd

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/loan-servicing/db"
	"github.com/frahmantamala/loan-servicing/pkg/logger"
)

var (
	migrateCmd = &cobra.Command{
		RunE:      runMigration,
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect the schema migrations",
		Long:      `Runs the goose migrations embedded in the binary, or the ones in --dir when given. Defaults to up.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status", "version"},
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration, same as migrate down")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "", "read migrations from this directory instead of the embedded set")
}

func runMigration(_ *cobra.Command, args []string) error {
	command := "up"
	if len(args) == 1 {
		command = args[0]
	}
	if migrateRollback {
		command = "down"
	}
	switch command {
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	conn, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	dir := migrateDir
	if dir == "" {
		goose.SetBaseFS(db.Migrations)
		dir = db.MigrationsDir
	}
	goose.SetTableName("schema_migrations")

	lg := logger.LoggerWrapper()
	lg.Info("running migrations", "command", command, "dir", dir)
	if err := goose.RunContext(context.Background(), command, conn, dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
