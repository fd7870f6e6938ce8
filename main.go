package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joe-ervin05/rolebase/config"
	"github.com/joe-ervin05/rolebase/tools"
)

// newRootCmd builds the command tree. The App opened for the running command
// is stored in *app so the caller can close it whatever the outcome.
func newRootCmd(app **App) *cobra.Command {
	root := &cobra.Command{
		Use:   "rolebase",
		Short: "User and role REST backend for MySQL, PostgreSQL and SQLite",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			*app = a
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the configured bootstrap steps, then serve HTTP until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := (*app).Bootstrap(cmd.Context()); err != nil {
					return err
				}
				return (*app).Serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the roles and users tables if they do not exist",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return (*app).Migrate(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert the default roles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return (*app).Seed(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "truncate [tables...]",
			Short: "Empty the given tables, or every table when none are given",
			RunE: func(cmd *cobra.Command, args []string) error {
				return (*app).Truncate(cmd.Context(), args)
			},
		},
	)
	return root
}

func run(ctx context.Context, args []string) error {
	var app *App
	root := newRootCmd(&app)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if app != nil {
		err = errors.Join(err, app.Close())
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		tools.Logger.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
