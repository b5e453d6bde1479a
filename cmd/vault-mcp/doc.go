// Package main (cmd/vault-mcp) serves the vault actions lookup_schema,
// create_schema, data_upload and data_download as MCP tools over stdio.
// Logs are written to stderr.
package main
