package main

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/txengine/internal/infrastructure/postgres"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the snapshot database schema",
	}

	cmd.AddCommand(
		newMigrateStepCmd(opts, "up", "Apply all pending migrations", postgres.RunMigrations),
		newMigrateStepCmd(opts, "down", "Roll back the last migration", postgres.RunMigrationsDown),
	)

	return cmd
}

func newMigrateStepCmd(opts *options, use, short string, step func(string, zerolog.Logger) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			if a.cfg.DatabaseURL == "" {
				return errNoDatabase
			}

			return step(a.cfg.DatabaseURL, a.log)
		},
	}
}
