package common

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/attachdrop/internal/instrumentation"
	"github.com/teemow/attachdrop/internal/logging"
	"github.com/teemow/attachdrop/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with a tool span, invocation
// metrics and an audit record. A result with IsError set counts as a
// failed invocation.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("gmail_list_attachments", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		account := GetAccountFromArgs(sc, args)

		attrs := instrumentation.NewSpanAttributeBuilder().
			WithTool(toolName).
			WithAccount(account)
		invocation := instrumentation.NewToolInvocation(toolName).WithAccount(account)
		if messageID, ok := args["messageId"].(string); ok && messageID != "" {
			attrs.WithResource("message", messageID)
			invocation.WithMessage(messageID)
		}
		if items, ok := args["attachments"].([]any); ok {
			attrs.WithItems(len(items))
			invocation.WithItems(len(items))
		}

		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs.Build()...)
		invocation.WithSpanContext(ctx)

		result, err := handler(ctx, request)

		if err != nil {
			logging.WithTool(sc.Logger(), toolName).Error("tool handler returned an error", logging.Err(err))
		}
		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(ResultText(result))
		}
		invocation.Complete(failure == nil, failure)
		instrumentation.EndSpan(span, failure)

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), account, invocation.Duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		return result, err
	}
}

// ResultText returns the concatenated text content of a tool result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var text string
	for _, c := range result.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			text += tc.Text
		case *mcp.TextContent:
			text += tc.Text
		}
	}
	return text
}
