// Package cmd implements the command-line interface for attachdrop.
//
// This package provides the following commands:
//   - serve: Start the MCP server over stdio or streamable HTTP
//   - attachments list|save|bulk: Run the attachment operations once from the shell
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// Configuration is read from --config (or ATTACHDROP_CONFIG) and
// environment variables; see internal/config.
package cmd
