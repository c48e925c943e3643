// Package batch provides helpers for tools that act on several message IDs
// in one call: parsing ID parameters, running an operation per ID with
// partial failure, and rendering the aggregated outcome as JSON.
package batch
