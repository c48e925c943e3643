// Package logging provides structured logging helpers for budget-agent.
//
// All components receive an injected *slog.Logger; this package builds it
// (New) and supplies attribute helpers so keys stay consistent across the
// retrieval, credential and tool layers.
//
// # Usage Patterns
//
//	logger := logging.New("debug", logging.FormatText)
//	logger = logging.WithOperation(logger, "gmail.fetch")
//	logger.Warn("fetch failed", logging.MessageID(id), logging.Err(err))
//
// # Security Considerations
//
// Search queries contain amounts and merchant names, so they are logged as a
// short hash (QueryHash). Mailbox addresses are hashed (Mailbox) and tokens are
// reduced to their length (SanitizeToken).
package logging
