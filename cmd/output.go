package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/moldin/gcp-budget-agent/internal/retrieval"
)

var (
	errc    = color.New(color.BgRed, color.FgWhite).FprintfFunc()
	headerc = color.New(color.BgBlue, color.FgWhite).FprintfFunc()
	okc     = color.New(color.BgGreen, color.FgBlack).FprintfFunc()
	queryc  = color.New(color.BgYellow, color.FgBlack).FprintfFunc()
)

func validateFormat(format string) error {
	if !slices.Contains(retrieval.Formats, format) {
		return fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(retrieval.Formats, ", "))
	}
	return nil
}

// printQuery writes the query that is about to run.
func printQuery(w io.Writer, query string) {
	queryc(w, " QUERY ")
	fmt.Fprintf(w, " %s\n", query)
}

// printResult writes the rendered result to out. For the human formats a
// status line with the counts goes to status, keeping out parseable.
func printResult(out, status io.Writer, res *retrieval.Result, format string) error {
	text, err := retrieval.Render(res, format)
	if err != nil {
		return err
	}

	if format != retrieval.FormatStructured && res != nil {
		headerc(status, " [%d of %d] ", len(res.Emails), res.References)
		if res.Failed > 0 {
			errc(status, " %d SKIPPED ", res.Failed)
		}
		if res.SearchErr != nil {
			errc(status, " SEARCH FAILED ")
			fmt.Fprintf(status, " %v", res.SearchErr)
		}
		fmt.Fprintln(status)
	}

	fmt.Fprintln(out, text)
	return nil
}
