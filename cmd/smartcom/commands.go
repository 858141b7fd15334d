package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartcom/smartcom-go/pkg/api"
	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/nlq"
	"github.com/smartcom/smartcom-go/pkg/scheduler"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the checkout reconciliation job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			jobs, err := scheduler.NewService(a.carts, a.cfg.ReconcileSchedule, a.cfg.ReconcileAge(), a.logger)
			if err != nil {
				return err
			}
			jobs.Start()
			defer jobs.Stop()

			server := api.NewServer(
				a.cfg.Port,
				a.store,
				api.NewNLQHandler(a.nlq),
				api.NewCartHandler(a.carts),
				api.NewOrderHandler(a.carts),
				a.metrics.Handler(),
				a.logger,
			)
			server.RegisterHandler("/api/jobs/", api.NewScheduleHandler(jobs).HandleJob)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown: %w", err)
			}
			return nil
		},
	}
}

func translateCmd(flags *globalFlags) *cobra.Command {
	var execute bool

	cmd := &cobra.Command{
		Use:   "translate <question>",
		Short: "Translate a question to SPARQL",
		Long: `Translate a French or English question to SPARQL through the
translator chain. With --execute the query is also run and the rows printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			question := strings.Join(args, " ")
			if execute {
				res, err := a.nlq.Ask(cmd.Context(), question)
				if err != nil {
					return describeNLQError(err)
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			t, err := a.nlq.Translate(cmd.Context(), question)
			if err != nil {
				return describeNLQError(err)
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().BoolVarP(&execute, "execute", "x", false, "Run the query against the triplestore")
	return cmd
}

func searchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <products|stock|clients|suppliers> <question>",
		Short: "Run a domain search from extracted entities",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, ok := models.ParseDomain(args[0])
			if !ok {
				return fmt.Errorf("unknown domain %q", args[0])
			}

			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.nlq.Search(cmd.Context(), domain, strings.Join(args[1:], " "))
			if err != nil {
				return describeNLQError(err)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func reconcileCmd(flags *globalFlags) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Settle pending checkouts recorded in the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("older-than") {
				olderThan = a.cfg.ReconcileAge()
			}
			settled, err := a.carts.Reconcile(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settled %d pending checkout(s)\n", settled)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only settle checkouts pending for at least this long (default from config)")
	return cmd
}

func seedCmd(flags *globalFlags) *cobra.Command {
	var graph string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the lexicon individuals into the triplestore",
		Long: `Load the categories, brands, countries and cities of the lexicon as
Turtle into the dataset, so a fresh store can answer catalogue questions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.LoadTurtle(cmd.Context(), graph, a.lexicon.Turtle()); err != nil {
				return err
			}
			target := graph
			if target == "" {
				target = "default graph"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded lexicon into %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVar(&graph, "graph", "", "Named graph IRI (default graph when empty)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func describeNLQError(err error) error {
	var execErr *nlq.ExecutionError
	if errors.As(err, &execErr) {
		return fmt.Errorf("%w\nquery:\n%s", err, execErr.Query)
	}
	return err
}
