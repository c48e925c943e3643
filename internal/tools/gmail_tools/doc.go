// Package gmail_tools provides the MCP tools a categorizing agent calls to
// find the email behind a bank transaction.
//
// Search:
//   - search_transactions: run a Gmail query and return the matching emails
//     with their extracted bodies
//   - gmail_search_receipts: build a bounded query from a transaction's date,
//     amount and merchant or keywords, then run it
//   - gmail_build_query: return the bounded query without running it
//
// Messages:
//   - gmail_get_emails: fetch one or more messages by ID
//
// Search tools accept a format argument: "summary" (default) renders a
// header line and one Subject/Body entry per email, "snippet" replaces the
// body with Gmail's snippet, "structured" returns {"emails": [...]} JSON and
// "display" renders Date/From/To/Subject/Body blocks.
//
// When Gmail cannot be reached because credentials are missing or revoked,
// tools return an error result that tells the user to run
// "budget-agent auth".
package gmail_tools
