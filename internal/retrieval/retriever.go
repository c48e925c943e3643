package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/moldin/gcp-budget-agent/internal/gmail"
	"github.com/moldin/gcp-budget-agent/internal/instrumentation"
	"github.com/moldin/gcp-budget-agent/internal/logging"
)

// DefaultMaxResults is used when a caller asks for zero or fewer emails.
const DefaultMaxResults = 5

// Mailbox is the part of the Gmail client the retriever needs.
type Mailbox interface {
	Search(ctx context.Context, query string, limit int64) ([]gmail.MessageRef, error)
	Fetch(ctx context.Context, ref gmail.MessageRef) (*gmail.Message, error)
}

// Options configures a Retriever.
type Options struct {
	// SearchLimit is the page size requested from search. It is raised to
	// maxResults when smaller so skipped messages can be replaced.
	SearchLimit int
	Metrics     *instrumentation.Metrics
}

// Retriever runs search, fetch and extraction for one query at a time.
type Retriever struct {
	mailbox Mailbox
	opts    Options
	logger  *slog.Logger
}

// Result is the outcome of one retrieval. It is always structured; the
// Format functions render it for humans.
type Result struct {
	Query string
	// References is how many messages matched the search.
	References int
	// Emails holds the extracted messages in search order.
	Emails []gmail.ExtractedEmail
	// Failed counts references whose fetch failed and were skipped.
	Failed int
	// SearchErr is set when search failed; References is then zero.
	SearchErr error
}

// New creates a Retriever reading from mailbox.
func New(mailbox Mailbox, logger *slog.Logger, opts Options) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		mailbox: mailbox,
		opts:    opts,
		logger:  logging.WithOperation(logger, "retrieve"),
	}
}

// Retrieve searches for query and fetches matches one by one until
// maxResults emails were extracted or the references run out. Fetch
// failures skip the message and a search failure yields an empty result.
// The returned error is non-nil only for credential failures and
// cancellation of ctx, which stop the work.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxResults, previewChars int) (*Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	limit := max(maxResults, r.opts.SearchLimit)

	ctx, span := instrumentation.StartSpan(ctx, "retrieval.retrieve",
		attribute.String(instrumentation.SpanAttrQueryHash, logging.QueryHash(query).Value.String()),
		attribute.Int(instrumentation.SpanAttrMaxResults, maxResults))
	defer span.End()

	log := r.logger.With(logging.QueryHash(query))
	res := &Result{Query: query}

	refs, err := r.mailbox.Search(ctx, query, int64(limit))
	if err != nil {
		if gmail.IsCredentialError(err) {
			instrumentation.SetSpanError(span, err)
			return nil, err
		}
		log.Warn("search failed", logging.Err(err))
		instrumentation.SetSpanError(span, err)
		res.SearchErr = err
		return res, nil
	}
	res.References = len(refs)
	log.Debug("search finished", slog.Int("references", len(refs)), slog.Int("max_results", maxResults))

	for _, ref := range refs {
		if len(res.Emails) >= maxResults {
			break
		}
		if err := ctx.Err(); err != nil {
			instrumentation.SetSpanError(span, err)
			return res, fmt.Errorf("retrieve: %w", err)
		}

		msg, err := r.mailbox.Fetch(ctx, ref)
		if err != nil {
			if gmail.IsCredentialError(err) {
				instrumentation.SetSpanError(span, err)
				return res, err
			}
			res.Failed++
			r.opts.Metrics.RecordMessageSkipped(ctx)
			log.Warn("skipping message", logging.MessageID(ref.ID), logging.Err(err))
			continue
		}

		email := gmail.Assemble(msg, previewChars)
		r.opts.Metrics.RecordExtraction(ctx, extractionResult(email))
		if email.BodyFailed {
			log.Debug("body could not be decoded", logging.MessageID(ref.ID))
		}
		res.Emails = append(res.Emails, email)
	}

	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrReturned, len(res.Emails)),
		attribute.Int(instrumentation.SpanAttrSkipped, res.Failed),
	)
	instrumentation.SetSpanSuccess(span)
	log.Info("retrieval finished",
		slog.Int("references", res.References),
		slog.Int("returned", len(res.Emails)),
		slog.Int("skipped", res.Failed))
	return res, nil
}

func extractionResult(e gmail.ExtractedEmail) string {
	switch {
	case e.BodyFailed:
		return instrumentation.ExtractionDecodeError
	case e.Body == "":
		return instrumentation.ExtractionEmpty
	default:
		return instrumentation.ExtractionText
	}
}
