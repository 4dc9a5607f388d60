package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/avatarctic/voter-email/go/internal/core/domain/audit"
	"github.com/avatarctic/voter-email/go/internal/core/domain/email"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func parseVoterID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid voter id %q: %w", arg, err)
	}
	return id, nil
}

// withEnv runs fn with a wired env and a context cancelled on interrupt.
func withEnv(fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return fn(ctx, e, args)
	}
}

func init() {
	verifyContactsCommand := &cobra.Command{
		Use:   "verify-contacts [voter id]",
		Short: "Check a voter's imported contact emails against the validation API",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
			voterID, err := parseVoterID(args[0])
			if err != nil {
				return err
			}
			res, err := e.verification.AugmentContactsWithVerification(ctx, voterID)
			if err != nil {
				return err
			}
			return printJSON(res)
		}),
	}
	rootCommand.AddCommand(verifyContactsCommand)

	augmentContactsCommand := &cobra.Command{
		Use:   "augment-contacts [voter id]",
		Short: "Link a voter's imported contacts to known voters",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
			voterID, err := parseVoterID(args[0])
			if err != nil {
				return err
			}
			res, err := e.augmentation.AugmentContactsWithVoterData(ctx, voterID)
			if err != nil {
				return err
			}
			return printJSON(res)
		}),
	}
	rootCommand.AddCommand(augmentContactsCommand)

	healCommand := &cobra.Command{
		Use:   "heal [voter id]",
		Short: "Merge duplicate emails and repair the voter's primary email",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
			voterID, err := parseVoterID(args[0])
			if err != nil {
				return err
			}
			v, err := e.voters.GetByID(ctx, voterID)
			if err != nil {
				return fmt.Errorf("failed to load voter: %w", err)
			}
			if _, err := e.reconciler.MergeDuplicateEmails(ctx, voterID); err != nil {
				return err
			}
			addresses, err := e.emails.ListByVoter(ctx, voterID)
			if err != nil {
				return fmt.Errorf("failed to list voter emails: %w", err)
			}
			healed := e.reconciler.HealPrimaryEmail(ctx, addresses, v)
			if healed.Outcome != email.HealUnchanged {
				e.record(ctx, audit.ActionHealPrimary, voterID, map[string]any{"outcome": healed.Outcome.String(), "status": healed.Status})
			}
			return printJSON(map[string]any{
				"status":  healed.Status,
				"success": healed.Success,
				"outcome": healed.Outcome.String(),
			})
		}),
	}
	rootCommand.AddCommand(healCommand)

	moveEmailsCommand := &cobra.Command{
		Use:   "move-emails [from voter id] [to voter id]",
		Short: "Move every email of one voter to another voter",
		Args:  cobra.ExactArgs(2),
		RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
			fromID, err := parseVoterID(args[0])
			if err != nil {
				return err
			}
			toID, err := parseVoterID(args[1])
			if err != nil {
				return err
			}
			res, moveErr := e.reconciler.MoveAddressesToVoter(ctx, fromID, toID)
			e.record(ctx, audit.ActionMoveEmails, fromID, res)
			if err := printJSON(res); err != nil {
				return err
			}
			return moveErr
		}),
	}
	rootCommand.AddCommand(moveEmailsCommand)

	deleteEmailsCommand := &cobra.Command{
		Use:   "delete-emails [voter id]",
		Short: "Delete every email belonging to a voter",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
			voterID, err := parseVoterID(args[0])
			if err != nil {
				return err
			}
			v, err := e.voters.GetByID(ctx, voterID)
			if err != nil {
				return fmt.Errorf("failed to load voter: %w", err)
			}
			res, delErr := e.reconciler.DeleteAddressesForVoter(ctx, voterID, v)
			e.record(ctx, audit.ActionDeleteEmails, voterID, res)
			if err := printJSON(res); err != nil {
				return err
			}
			return delErr
		}),
	}
	rootCommand.AddCommand(deleteEmailsCommand)

	var migrationsPath string
	migrateCommand := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.Migrate(migrationsPath); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
	migrateCommand.Flags().StringVar(&migrationsPath, "path", "./migrations", "directory holding the migration files")
	rootCommand.AddCommand(migrateCommand)
}
