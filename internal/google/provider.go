package google

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/moldin/gcp-budget-agent/internal/logging"
)

// Provider owns the authenticated HTTP client used for Gmail. The client is
// built on first use and reused until Invalidate is called.
type Provider struct {
	source Source
	logger *slog.Logger
	base   http.RoundTripper

	// OnBuild, if set, is called after every build attempt.
	OnBuild func(ok bool)

	mu     sync.Mutex
	client *http.Client
	builds int
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithBaseTransport sets the transport underneath the OAuth2 transport.
func WithBaseTransport(rt http.RoundTripper) ProviderOption {
	return func(p *Provider) {
		p.base = rt
	}
}

// NewProvider creates a Provider for source. Nothing is read until the first
// HTTPClient call.
func NewProvider(source Source, logger *slog.Logger, opts ...ProviderOption) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{source: source, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.base == nil {
		p.base = http1Transport()
	}
	return p
}

// HTTPClient returns the cached client, building it if needed. Build failures
// are returned as *CredentialError and are not cached.
func (p *Provider) HTTPClient(ctx context.Context) (*http.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := p.build(ctx)
	if p.OnBuild != nil {
		p.OnBuild(err == nil)
	}
	if err != nil {
		p.logger.Error("failed to build gmail credentials",
			logging.Operation("credentials.build"),
			slog.String("source", p.source.Describe()),
			logging.Err(err))
		return nil, err
	}

	p.builds++
	p.client = client
	p.logger.Debug("built gmail credentials",
		slog.String("source", p.source.Describe()),
		slog.Int("builds", p.builds))
	return client, nil
}

func (p *Provider) build(ctx context.Context) (*http.Client, error) {
	// The token source outlives the call that first needed it.
	ts, err := p.source.TokenSource(context.WithoutCancel(ctx))
	if err != nil {
		return nil, asCredentialError("token source", err)
	}

	// Fail at first use rather than on the first Gmail request.
	if _, err := ts.Token(); err != nil {
		return nil, asCredentialError("obtain token", err)
	}

	return &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: p.base},
	}, nil
}

// Invalidate drops the cached client so the next HTTPClient call rebuilds it.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.logger.Warn("invalidating gmail credentials", slog.String("source", p.source.Describe()))
	}
	p.client = nil
}

// Ready reports whether a client is currently cached.
func (p *Provider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.client != nil
}

// Builds returns how many clients have been built successfully.
func (p *Provider) Builds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.builds
}

// Source returns the configured credential source.
func (p *Provider) Source() Source {
	return p.source
}

// IsRefreshFailure reports whether err came from the token endpoint
// rejecting a refresh.
func IsRefreshFailure(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re)
}

func asCredentialError(op string, err error) error {
	var ce *CredentialError
	if errors.As(err, &ce) {
		return err
	}
	return &CredentialError{Op: op, Err: err}
}

// http1Transport forces HTTP/1.1, which avoids sporadic HTTP/2 stream errors
// against the Gmail API.
func http1Transport() http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return t
}
