package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/go-auth-verify/cmd/authctl/ui"
	"github.com/redmonkez12/go-auth-verify/internal/app"
	"github.com/redmonkez12/go-auth-verify/internal/config"
	"github.com/redmonkez12/go-auth-verify/internal/database"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
	"github.com/redmonkez12/go-auth-verify/internal/user"
	"github.com/redmonkez12/go-auth-verify/internal/verification"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Operate the auth service",
		Long:          "Maintenance commands for the auth service: migrations, verification codes and sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE:  runMigrateStatus,
		},
	)

	codesCmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage email verification codes",
	}
	purgeCmd := &cobra.Command{
		Use:   "purge-expired",
		Short: "Delete expired verification codes",
		RunE:  runPurgeExpired,
	}
	resendCmd := &cobra.Command{
		Use:   "resend",
		Short: "Issue and send a new verification code to a user",
		RunE:  runResend,
	}
	resendCmd.Flags().String("email", "", "User email address")
	_ = resendCmd.MarkFlagRequired("email")
	codesCmd.AddCommand(purgeCmd, resendCmd)

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage user sessions",
	}
	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "Log a user out of every session",
		RunE:  runRevoke,
	}
	revokeCmd.Flags().String("email", "", "User email address")
	revokeCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")
	_ = revokeCmd.MarkFlagRequired("email")
	sessionsCmd.AddCommand(revokeCmd)

	rootCmd.AddCommand(migrateCmd, codesCmd, sessionsCmd)
	return rootCmd
}

func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		ui.PrintError(err.Error())
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.NewLogger(cfg.Server.IsDevelopment()), nil
}

// withApp builds the full dependency graph for commands that touch users or sessions.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := logging.WithLogger(cmd.Context(), logger)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		ui.PrintError(err.Error())
		return err
	}
	return nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Open(cmd.Context(), cfg.Database.ConnectionString())
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}
	defer db.Close()

	if err := database.Migrate(cmd.Context(), db); err != nil {
		ui.PrintError(err.Error())
		return err
	}

	ui.PrintSuccess("Migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Open(cmd.Context(), cfg.Database.ConnectionString())
	if err != nil {
		ui.PrintError(err.Error())
		return err
	}
	defer db.Close()

	fmt.Println(ui.Title("Migration status"))
	return database.MigrationStatus(cmd.Context(), db)
}

func runPurgeExpired(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		codes := verification.NewService(verification.NewRepository(a.DB), verification.Config{
			Length: a.Config.Verification.CodeLength,
			TTL:    a.Config.Verification.CodeTTL,
		})

		n, err := codes.PurgeExpired(ctx)
		if err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Purged %d expired verification codes", n))
		return nil
	})
}

func runResend(cmd *cobra.Command, args []string) error {
	emailAddr, _ := cmd.Flags().GetString("email")

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		u, err := a.Service.FindUserByEmail(ctx, emailAddr)
		if err != nil {
			return describeLookupError(emailAddr, err)
		}

		if u.EmailVerified {
			fmt.Println(ui.Subtle(fmt.Sprintf("%s is already verified, nothing to send", u.Email)))
			return nil
		}

		if err := a.Service.ResendVerificationCode(ctx, u); err != nil {
			return err
		}

		if a.Worker != nil {
			// The api process runs the worker that drains the queue.
			ui.PrintSuccess(fmt.Sprintf("Queued a new verification code for %s", u.Email))
			return nil
		}
		ui.PrintSuccess(fmt.Sprintf("Sent a new verification code to %s", u.Email))
		return nil
	})
}

func runRevoke(cmd *cobra.Command, args []string) error {
	emailAddr, _ := cmd.Flags().GetString("email")
	yes, _ := cmd.Flags().GetBool("yes")

	if !yes {
		confirmed, err := ui.Confirm(
			fmt.Sprintf("Revoke every session for %s?", emailAddr),
			"The user will be signed out on all devices.",
		)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println(ui.Subtle("Aborted."))
			return nil
		}
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		u, err := a.Service.RevokeSessions(ctx, emailAddr)
		if err != nil {
			return describeLookupError(emailAddr, err)
		}

		ui.PrintSuccess(fmt.Sprintf("Revoked all sessions for %s", u.Email))
		return nil
	})
}

func describeLookupError(emailAddr string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("no user with email %q", emailAddr)
	}
	return err
}
