// Command migrate applies or reverts the embedded schema migrations.
//
//	migrate up       apply every pending migration
//	migrate down     revert the most recent migration
//	migrate version  print the applied version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foozio/prodmatic-sub002/internal/config"
	"github.com/foozio/prodmatic-sub002/internal/db/migrate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the ProdMatic database schema",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if dsn != "" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			dsn = cfg.DatabaseURL
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dsn, "database-url", "", "Postgres DSN; defaults to DATABASE_URL")

	root.AddCommand(directionCmd(migrate.Up, "Apply every pending migration", &dsn))
	root.AddCommand(directionCmd(migrate.Down, "Revert the most recent migration", &dsn))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, dirty, err := migrate.Version(dsn)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})
	return root
}

func directionCmd(direction migrate.Direction, short string, dsn *string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.Run(*dsn, direction); err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", direction)
			return nil
		},
	}
}
