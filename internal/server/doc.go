// Package server holds the process-wide state of the budget agent MCP server
// and its HTTP surfaces.
//
// ServerContext owns the credential provider, the Gmail client and the
// retriever. Credentials are built lazily on the first Gmail call and rebuilt
// after a refresh failure.
//
// HTTPServer serves the streamable HTTP transport on /mcp together with
// /healthz and /readyz. MetricsServer exposes Prometheus metrics on a
// separate port.
package server
