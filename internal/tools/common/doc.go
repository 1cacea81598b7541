// Package common holds helpers shared by the MCP tool packages: account
// resolution from tool arguments and the instrumentation wrapper every
// tool handler is registered through.
package common
