package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/infrastructure"
	"github.com/JaimeStill/moltblock/internal/store"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the store schema",
		Long:  "Manage the store schema. Other commands apply pending migrations on startup.",
	}

	cmd.AddCommand(
		migrateAction("up", "Apply all pending migrations", cobra.NoArgs,
			func(mg *store.Migrator, _ []string) error { return mg.Up() }),
		migrateAction("down", "Revert all migrations", cobra.NoArgs,
			func(mg *store.Migrator, _ []string) error { return mg.Down() }),
		migrateAction("steps <n>", "Apply n migrations; a negative n (after --) reverts", cobra.ExactArgs(1),
			func(mg *store.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q", args[0])
				}
				return mg.Steps(n)
			}),
		migrateAction("force <version>", "Set the schema version without migrating", cobra.ExactArgs(1),
			func(mg *store.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return mg.Force(v)
			}),
		newMigrateVersionCmd(),
	)
	return cmd
}

// withMigrator runs fn with a migrator over the configured database. The
// infrastructure is not started, so no migration runs implicitly.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	infra, err := infrastructure.New(cmd.Context(), cfg, infrastructure.WithLogOutput(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer infra.Database.Close()

	mg, err := store.NewMigrator(cmd.Context(), infra.Database, infra.Logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(mg)
}

func migrateAction(use, short string, args cobra.PositionalArgs, fn func(*store.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *store.Migrator) error {
				return fn(mg, args)
			})
		},
	}
}

func newMigrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(mg *store.Migrator) error {
				v, dirty, err := mg.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %t\n", v, dirty)
				return nil
			})
		},
	}
}
