package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moldin/gcp-budget-agent/internal/config"
	"github.com/moldin/gcp-budget-agent/internal/google"
)

const authState = "budget-agent"

// authorizer is the part of google.UserSource the auth flow uses.
type authorizer interface {
	AuthURL(state string) (string, error)
	Exchange(ctx context.Context, code string) error
}

func newAuthCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize read access to Gmail",
		Long: `Authorize budget-agent to read your Gmail with the OAuth client configured in
credentials.client_secret_file. The resulting token is stored in
credentials.token_file with 0600 permissions and refreshed automatically.

Not needed when a service account key with domain-wide delegation is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Credentials.ResolvedMode() != config.ModeOAuth {
				return errors.New("credentials are configured for a service account; auth is only needed in oauth mode")
			}

			src := &google.UserSource{
				ClientSecretFile: cfg.Credentials.ClientSecretFile,
				TokenFile:        cfg.Credentials.TokenFile,
				Logger:           logger,
			}
			return authorize(cmd.Context(), src, code, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code, if already obtained")

	return cmd
}

// authorize runs the copy-paste OAuth flow. Without code it prints the
// consent URL and reads the code from in.
func authorize(ctx context.Context, a authorizer, code string, in io.Reader, out io.Writer) error {
	code = strings.TrimSpace(code)
	if code == "" {
		url, err := a.AuthURL(authState)
		if err != nil {
			return fmt.Errorf("failed to build authorization URL: %w", err)
		}
		fmt.Fprintf(out, `To authorize read access to Gmail:

1. Visit this URL in your browser:
   %s

2. Sign in with the Google account that receives your receipts
3. Copy the authorization code

Authorization code: `, url)

		scanner := bufio.NewScanner(in)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			return errors.New("no authorization code entered")
		}
		code = strings.TrimSpace(scanner.Text())
		if code == "" {
			return errors.New("no authorization code entered")
		}
	}

	if err := a.Exchange(ctx, code); err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	okc(out, " AUTHORIZED ")
	fmt.Fprintln(out, " token saved; tokens are refreshed automatically")
	return nil
}
