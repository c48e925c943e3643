// Package cmd implements the command-line interface for budget-agent.
//
// This package provides the following commands:
//   - serve: Start the MCP server that exposes the search tools
//   - search: Run a Gmail query and print the extracted emails
//   - receipts: Build a bounded query for a transaction and run it
//   - auth: Authorize Gmail access and store the OAuth token
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
