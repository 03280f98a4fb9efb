package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/social-security/patient-office/internal/auth"
	"github.com/social-security/patient-office/internal/shared/config"
	"github.com/social-security/patient-office/internal/shared/database"
	"github.com/social-security/patient-office/internal/shared/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "office",
		Short:        "Patient office for the social security medical records",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(migrateCmd())

	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the patient office HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the demo accounts accepted by the login page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printUsers(cmd.Context(), cmd, auth.NewDemoDirectory())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL session store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger := logging.New(cfg.Log)

			db, err := database.New(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			applied, err := database.Migrate(ctx, db.Pool)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			if len(applied) == 0 {
				logger.Info().Msg("database is up to date")
				return nil
			}
			for _, version := range applied {
				logger.Info().Str("version", version).Msg("applied migration")
			}
			return nil
		},
	}
}

func printUsers(ctx context.Context, cmd *cobra.Command, dir auth.Directory) error {
	users, err := dir.Users(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tEMAIL\tDOCTOR")
	for _, u := range users {
		doctor := "-"
		if u.DoctorID != nil {
			doctor = u.DoctorID.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.Username, u.Role.Label(), u.Email, doctor)
	}
	return w.Flush()
}
