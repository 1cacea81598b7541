// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for attachdrop.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: HTTP transport requests
//   - backend_operations_total, backend_operation_duration_seconds: calls to
//     Gmail, Drive, S3 and the eml directory, by backend, operation and status
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tool calls
//   - attachment_transfers_total: finished transfers by status
//   - attachment_transfer_bytes: sizes of successful transfers
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), each attachment
// transfer (attachment.transfer) and backend calls (<backend>.<operation>).
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: attachdrop)
//   - METRICS_DETAILED_LABELS, AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordTransfer(ctx, instrumentation.StatusSuccess, 4096)
package instrumentation
