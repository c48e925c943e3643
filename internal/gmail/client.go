package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/moldin/gcp-budget-agent/internal/google"
	"github.com/moldin/gcp-budget-agent/internal/instrumentation"
	"github.com/moldin/gcp-budget-agent/internal/logging"
)

const (
	userID = "me"

	// DefaultCallTimeout bounds a single search or fetch attempt.
	DefaultCallTimeout = 5 * time.Second
	// DefaultMaxRetries is how many times a transient failure is retried.
	DefaultMaxRetries = 2
)

// CredentialSource supplies the authenticated HTTP client.
// *google.Provider implements it.
type CredentialSource interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
	Invalidate()
}

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	CallTimeout time.Duration
	// MaxRetries < 0 disables retries.
	MaxRetries int
	// Endpoint overrides the Gmail API base URL.
	Endpoint string
	// BackOff builds the retry schedule for one call.
	BackOff func() backoff.BackOff
	Metrics *instrumentation.Metrics
}

// Client searches and fetches messages of the authenticated mailbox.
type Client struct {
	creds  CredentialSource
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	svc    *gmail.Service
	svcFor *http.Client
}

// NewClient creates a Client. Credentials are not touched until the first call.
func NewClient(creds CredentialSource, opts Options, logger *slog.Logger) *Client {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackOff == nil {
		opts.BackOff = defaultBackOff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{creds: creds, opts: opts, logger: logging.WithOperation(logger, "gmail")}
}

// Search runs query through users.messages.list and returns at most limit
// references from the first page.
func (c *Client) Search(ctx context.Context, query string, limit int64) ([]MessageRef, error) {
	ctx, span := instrumentation.StartGmailSpan(ctx, instrumentation.OperationSearch,
		attribute.Int64(instrumentation.SpanAttrMaxResults, limit))
	defer span.End()

	resp, err := call(ctx, c, instrumentation.OperationSearch, func(ctx context.Context, svc *gmail.UsersMessagesService) (*gmail.ListMessagesResponse, error) {
		req := svc.List(userID).Q(query).Context(ctx)
		if limit > 0 {
			req = req.MaxResults(limit)
		}
		return req.Do()
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("search messages: %w", err)
	}

	refs := make([]MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil || m.Id == "" {
			continue
		}
		refs = append(refs, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}
	instrumentation.SetSpanSuccess(span)
	return refs, nil
}

// Fetch retrieves the full message for ref.
func (c *Client) Fetch(ctx context.Context, ref MessageRef) (*Message, error) {
	ctx, span := instrumentation.StartGmailSpan(ctx, instrumentation.OperationFetch,
		attribute.String(instrumentation.SpanAttrMessageID, ref.ID))
	defer span.End()

	msg, err := call(ctx, c, instrumentation.OperationFetch, func(ctx context.Context, svc *gmail.UsersMessagesService) (*gmail.Message, error) {
		return svc.Get(userID, ref.ID).Format("full").Context(ctx).Do()
	})
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("fetch message %s: %w", ref.ID, err)
	}

	instrumentation.SetSpanSuccess(span)
	return MessageFromAPI(msg), nil
}

// call runs fn with a per-attempt timeout, retrying transient failures. A
// token refresh rejected mid-call drops the cached credentials so the next
// call rebuilds them.
func call[T any](ctx context.Context, c *Client, op string, fn func(context.Context, *gmail.UsersMessagesService) (T, error)) (T, error) {
	start := time.Now()
	var zero T

	svc, err := c.messages(ctx)
	if err != nil {
		c.opts.Metrics.RecordGmailCall(ctx, op, instrumentation.StatusError, time.Since(start))
		return zero, err
	}

	attempt := func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()

		v, err := fn(callCtx, svc)
		if err == nil {
			return v, nil
		}
		if google.IsRefreshFailure(err) {
			c.creds.Invalidate()
			c.opts.Metrics.RecordCredentialInvalidation(ctx)
			return zero, backoff.Permanent(&google.CredentialError{Op: "refresh token", Err: err})
		}
		if !isTransient(ctx, err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}

	v, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.opts.BackOff()),
		backoff.WithMaxTries(uint(c.opts.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.opts.Metrics.RecordGmailRetry(ctx, op)
			c.logger.Debug("retrying gmail call",
				logging.Operation(op),
				slog.Int("status_code", statusCode(err)),
				slog.Duration("backoff", next),
				logging.Err(err))
		}),
	)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.opts.Metrics.RecordGmailCall(ctx, op, status, time.Since(start))
	return v, err
}

// messages returns the messages service bound to the current credentials,
// rebuilding it when the provider hands out a new HTTP client.
func (c *Client) messages(ctx context.Context) (*gmail.UsersMessagesService, error) {
	hc, err := c.creds.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svc != nil && c.svcFor == hc {
		return c.svc.Users.Messages, nil
	}

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.opts.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.opts.Endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	c.svc, c.svcFor = svc, hc
	return svc.Users.Messages, nil
}

// IsCredentialError reports whether err means Gmail cannot be used at all.
func IsCredentialError(err error) bool {
	return google.IsCredentialError(err)
}

