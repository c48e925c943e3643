package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/server"
)

type receiptsOptions struct {
	searchOptions

	date     string
	amount   string
	keywords []string
	merchant string
	window   int
	dryRun   bool
}

func newReceiptsCmd() *cobra.Command {
	var opts receiptsOptions

	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "Find the emails behind a transaction",
		Long: `Build a Gmail query bounded to a date window around a transaction, matching
its amount in every common number format, and print the emails it finds.

With --merchant the query is restricted to receipt-like subjects and to
emails whose subject or sender mentions the merchant; --keyword terms are
then ignored.

Examples:
  budget-agent receipts --date 2024-03-12 --amount "1 049,12" --keyword acme
  budget-agent receipts --date 2024-03-12 --amount 42.50 --merchant Spotify --window 1
  budget-agent receipts --date 2024-03-12 --amount 42.50 --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceipts(cmd, opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.date, "date", "", "Transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "Transaction amount, e.g. 1049.12, \"1 049,12\" or -42")
	cmd.Flags().StringSliceVarP(&opts.keywords, "keyword", "k", nil, "Keyword to match (repeatable)")
	cmd.Flags().StringVar(&opts.merchant, "merchant", "", "Merchant name for the receipt-oriented query")
	cmd.Flags().IntVar(&opts.window, "window", -1, "Days before and after the date to include (default: search.window_days)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the query without running it")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

// buildQuery turns the flags into a Gmail query. A negative window uses
// defaultWindow.
func (o receiptsOptions) buildQuery(defaultWindow int) (string, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(o.date))
	if err != nil {
		return "", fmt.Errorf("invalid --date %q, want YYYY-MM-DD", o.date)
	}

	var amount gmail.Amount
	if strings.TrimSpace(o.amount) != "" {
		amount, err = gmail.ParseAmount(o.amount)
		if err != nil {
			return "", fmt.Errorf("invalid --amount: %w", err)
		}
	}

	window := o.window
	if window < 0 {
		window = defaultWindow
	}

	if o.merchant != "" {
		return gmail.BuildReceiptQuery(date, amount, o.merchant, window)
	}
	return gmail.BuildQuery(date, amount, o.keywords, window)
}

func runReceipts(cmd *cobra.Command, opts receiptsOptions) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	query, err := opts.buildQuery(cfg.Search.WindowDays)
	if err != nil {
		return err
	}
	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), query)
		return nil
	}
	printQuery(cmd.ErrOrStderr(), query)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	sc, err := server.NewServerContext(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	return retrieveAndPrint(ctx, cmd, sc, query, opts.searchOptions)
}
