package google

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Source produces the token source a Provider authenticates with.
type Source interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
	// Describe names the source for logs and health output.
	Describe() string
}

// ServiceAccountSource authenticates as a service account with domain-wide
// delegation, impersonating Subject.
type ServiceAccountSource struct {
	KeyFile string
	Subject string
	Scopes  []string
}

// TokenSource implements Source.
func (s *ServiceAccountSource) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if s.KeyFile == "" {
		return nil, &CredentialError{Op: "service account", Err: errors.New("no key file configured")}
	}
	if s.Subject == "" {
		return nil, &CredentialError{Op: "service account", Err: errors.New("no mailbox to impersonate")}
	}

	key, err := os.ReadFile(s.KeyFile)
	if err != nil {
		return nil, &CredentialError{Op: "read key", Path: s.KeyFile, Err: err}
	}

	conf, err := google.JWTConfigFromJSON(key, scopesOrDefault(s.Scopes)...)
	if err != nil {
		return nil, &CredentialError{Op: "parse key", Path: s.KeyFile, Err: err}
	}
	conf.Subject = s.Subject

	return conf.TokenSource(ctx), nil
}

// Describe implements Source.
func (s *ServiceAccountSource) Describe() string {
	return "service_account"
}

// UserSource authenticates with an installed-app OAuth client and a token
// persisted on disk by the auth command.
type UserSource struct {
	ClientSecretFile string
	TokenFile        string
	Scopes           []string
	Logger           *slog.Logger
}

// Config loads the OAuth client configuration from ClientSecretFile.
func (s *UserSource) Config() (*oauth2.Config, error) {
	if s.ClientSecretFile == "" {
		return nil, &CredentialError{Op: "oauth client", Err: errors.New("no client secret file configured")}
	}
	secret, err := os.ReadFile(s.ClientSecretFile)
	if err != nil {
		return nil, &CredentialError{Op: "read client secret", Path: s.ClientSecretFile, Err: err}
	}
	conf, err := google.ConfigFromJSON(secret, scopesOrDefault(s.Scopes)...)
	if err != nil {
		return nil, &CredentialError{Op: "parse client secret", Path: s.ClientSecretFile, Err: err}
	}
	return conf, nil
}

// TokenSource implements Source.
func (s *UserSource) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	conf, err := s.Config()
	if err != nil {
		return nil, err
	}

	path := s.tokenFile()
	tok, err := LoadToken(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errors.New("no token found, run 'budget-agent auth' first")
		}
		return nil, &CredentialError{Op: "load token", Path: path, Err: err}
	}

	return oauth2.ReuseTokenSource(tok, newPersistingTokenSource(conf.TokenSource(ctx, tok), path, tok, s.logger())), nil
}

// Describe implements Source.
func (s *UserSource) Describe() string {
	return "oauth"
}

// AuthURL returns the consent URL the user visits to authorize mailbox access.
func (s *UserSource) AuthURL(state string) (string, error) {
	conf, err := s.Config()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a token and persists it.
func (s *UserSource) Exchange(ctx context.Context, code string) error {
	conf, err := s.Config()
	if err != nil {
		return err
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return &CredentialError{Op: "exchange auth code", Err: err}
	}
	if err := SaveToken(s.tokenFile(), tok); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.logger().Info("saved oauth token", slog.String("path", s.tokenFile()))
	return nil
}

func (s *UserSource) tokenFile() string {
	if s.TokenFile != "" {
		return s.TokenFile
	}
	return DefaultTokenFile()
}

func (s *UserSource) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func scopesOrDefault(scopes []string) []string {
	if len(scopes) == 0 {
		return GmailScopes
	}
	return scopes
}

// compile-time interface checks
var (
	_ Source = (*ServiceAccountSource)(nil)
	_ Source = (*UserSource)(nil)
)

