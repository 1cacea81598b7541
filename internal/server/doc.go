// Package server holds the runtime state shared by the MCP tools and the
// CLI: configuration, per-account mail and storage handles, and the
// transfer service built on them.
//
// ServerContext creates handles lazily and caches them per account. The
// configured mail source (Gmail or a local .eml directory) and storage
// backend (Google Drive or S3) decide which implementation is used.
//
// For the streamable HTTP transport the package also provides health
// probes (HealthChecker) and a dedicated Prometheus metrics listener
// (MetricsServer).
package server
