package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/retrieval"
	"github.com/moldin/gcp-budget-agent/internal/server"
)

// searchOptions are the flags shared by search and receipts.
type searchOptions struct {
	maxResults int
	format     string
	fullBody   bool
}

func (o *searchOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&o.maxResults, "max-results", "n", 0, "Maximum number of emails to print (default: search.default_max_results)")
	cmd.Flags().StringVarP(&o.format, "format", "f", retrieval.FormatDisplay, "Output format: "+strings.Join(retrieval.Formats, ", "))
	cmd.Flags().BoolVar(&o.fullBody, "full-body", false, "Print whole bodies instead of a preview")
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search Gmail and print the extracted emails",
		Long: `Run a Gmail search query and print the matching emails with their extracted
text bodies. This is the search_transactions MCP tool, from the terminal.

Examples:
  budget-agent search 'after:2024/03/09 before:2024/03/16 ("1049.12" OR "1049,12")'
  budget-agent search --format structured 'from:receipts@acme.example newer_than:7d'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

// runSearch retrieves query with a fresh server context and prints it.
func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	if err := validateFormat(opts.format); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	sc, err := server.NewServerContext(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	return retrieveAndPrint(ctx, cmd, sc, query, opts)
}

func retrieveAndPrint(ctx context.Context, cmd *cobra.Command, sc *server.ServerContext, query string, opts searchOptions) error {
	maxResults := opts.maxResults
	if maxResults <= 0 {
		maxResults = sc.Config().Search.DefaultMaxResults
	}
	preview := sc.Config().Search.PreviewChars
	if opts.fullBody {
		preview = gmail.FullBody
	}

	res, err := sc.Retriever().Retrieve(ctx, query, maxResults, preview)
	if err != nil {
		if gmail.IsCredentialError(err) {
			errc(cmd.ErrOrStderr(), " CREDENTIALS ")
			fmt.Fprintln(cmd.ErrOrStderr(), ` run "budget-agent auth" or configure a service account key`)
		}
		return err
	}
	return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, opts.format)
}
