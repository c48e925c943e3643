package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/moldin/gcp-budget-agent/internal/config"
	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/google"
	"github.com/moldin/gcp-budget-agent/internal/instrumentation"
	"github.com/moldin/gcp-budget-agent/internal/retrieval"
)

// ServerContext owns the credential provider, the Gmail client and the
// retriever shared by all tool calls of one process.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *slog.Logger

	credentials *google.Provider
	mailbox     retrieval.Mailbox
	retriever   *retrieval.Retriever
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics records Gmail, extraction and tool metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger logs every tool invocation.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = al }
}

// WithCredentialSource replaces the source derived from the config.
func WithCredentialSource(src google.Source) Option {
	return func(sc *ServerContext) {
		sc.credentials = google.NewProvider(src, sc.logger)
	}
}

// WithMailbox replaces the Gmail client, mainly for tests.
func WithMailbox(mb retrieval.Mailbox) Option {
	return func(sc *ServerContext) { sc.mailbox = mb }
}

// NewServerContext wires the components from cfg. Credentials are not read
// until the first Gmail call.
func NewServerContext(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*ServerContext, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:    shutdownCtx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(sc)
	}

	if sc.credentials == nil {
		src, err := CredentialSource(cfg.Credentials, logger)
		if err != nil {
			cancel()
			return nil, err
		}
		sc.credentials = google.NewProvider(src, logger)
	}
	if sc.metrics != nil {
		m := sc.metrics
		sc.credentials.OnBuild = func(ok bool) {
			result := instrumentation.CredentialBuildSuccess
			if !ok {
				result = instrumentation.CredentialBuildFailure
			}
			m.RecordCredentialBuild(sc.ctx, result)
		}
	}

	if sc.mailbox == nil {
		sc.mailbox = gmail.NewClient(sc.credentials, gmail.Options{
			CallTimeout: cfg.Gmail.CallTimeout(),
			MaxRetries:  maxRetriesOption(cfg.Gmail.MaxRetries),
			Endpoint:    cfg.Gmail.Endpoint,
			Metrics:     sc.metrics,
		}, logger)
	}

	sc.retriever = retrieval.New(sc.mailbox, logger, retrieval.Options{
		SearchLimit: cfg.Search.SearchLimit,
		Metrics:     sc.metrics,
	})
	return sc, nil
}

// CredentialSource builds the credential source selected by cfg.
func CredentialSource(cfg config.Credentials, logger *slog.Logger) (google.Source, error) {
	switch mode := cfg.ResolvedMode(); mode {
	case config.ModeServiceAccount:
		return &google.ServiceAccountSource{
			KeyFile: cfg.ServiceAccountKeyFile,
			Subject: cfg.Subject,
		}, nil
	case config.ModeOAuth:
		return &google.UserSource{
			ClientSecretFile: cfg.ClientSecretFile,
			TokenFile:        cfg.TokenFile,
			Logger:           logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown credentials mode %q", mode)
	}
}

// Config zero means "no retries" here, while gmail.Options treats zero as
// "use the default".
func maxRetriesOption(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Credentials returns the credential provider.
func (sc *ServerContext) Credentials() *google.Provider {
	return sc.credentials
}

// Mailbox returns the Gmail client used for search and fetch.
func (sc *ServerContext) Mailbox() retrieval.Mailbox {
	return sc.mailbox
}

// Retriever returns the shared retriever.
func (sc *ServerContext) Retriever() *retrieval.Retriever {
	return sc.retriever
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
