package attachment_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/attachdrop/internal/server"
	"github.com/teemow/attachdrop/internal/tools/batch"
	"github.com/teemow/attachdrop/internal/tools/common"
	"github.com/teemow/attachdrop/internal/transfer"
)

// Tool names.
const (
	ToolListAttachments = "gmail_list_attachments"
	ToolSaveAttachment  = "gmail_save_attachment_to_drive"
	ToolBulkSave        = "gmail_bulk_save_attachments_to_drive"
)

const accountDescription = "Account name or email (default: the configured default account). Used to manage multiple Google accounts."

// RegisterAttachmentTools registers the attachment tools with the MCP server.
func RegisterAttachmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool(ToolListAttachments,
		mcp.WithDescription("List the attachments of a Gmail message, including inline images, in the order they appear. Use the returned partId to save an attachment."),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler(ToolListAttachments, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAttachments(ctx, request, sc)
		}))

	saveTool := mcp.NewTool(ToolSaveAttachment,
		mcp.WithDescription("Save one attachment of a Gmail message to Google Drive (or the configured storage backend)"),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
		mcp.WithString("partId",
			mcp.Required(),
			mcp.Description("Part ID of the attachment as returned by gmail_list_attachments"),
		),
		mcp.WithString("folderId",
			mcp.Description("Destination folder ID (default: configured default folder, else the root folder)"),
		),
		mcp.WithString("rename",
			mcp.Description("File name to use instead of the attachment's own name"),
		),
	)
	s.AddTool(saveTool, common.InstrumentedToolHandler(ToolSaveAttachment, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAttachment(ctx, request, sc)
		}))

	bulkTool := mcp.NewTool(ToolBulkSave,
		mcp.WithDescription("Save several attachments to Google Drive (or the configured storage backend). Items are processed in order and a failing item does not stop the others."),
		mcp.WithString("account", mcp.Description(accountDescription)),
		mcp.WithArray("attachments",
			mcp.Description("Attachments to save. Each item has messageId and partId, and optionally folderId and rename overriding the batch values."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"messageId": map[string]any{"type": "string"},
					"partId":    map[string]any{"type": "string"},
					"folderId":  map[string]any{"type": "string"},
					"rename":    map[string]any{"type": "string"},
				},
				"required": []string{"messageId", "partId"},
			}),
		),
		mcp.WithString("messageId",
			mcp.Description("Alternative to attachments: the message whose parts listed in partIds are saved"),
		),
		mcp.WithString("partIds",
			mcp.Description("Part ID (string) or array of part IDs, used together with messageId"),
		),
		mcp.WithString("folderId",
			mcp.Description("Destination folder ID for items that do not name one"),
		),
		mcp.WithString("rename",
			mcp.Description("File name for items that do not name one"),
		),
	)
	s.AddTool(bulkTool, common.InstrumentedToolHandler(ToolBulkSave, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBulkSave(ctx, request, sc)
		}))

	return nil
}

type attachmentOutput struct {
	PartID      string `json:"partId"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mimeType"`
	Disposition string `json:"disposition,omitempty"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"sizeHuman"`
}

func handleListAttachments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}
	account := common.GetAccountFromArgs(sc, args)

	descriptors, err := sc.Service().ExtractAttachments(ctx, account, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list attachments: %v", err)), nil
	}
	if len(descriptors) == 0 {
		return mcp.NewToolResultText("No attachments found in message"), nil
	}

	outputs := make([]attachmentOutput, len(descriptors))
	for i, d := range descriptors {
		outputs[i] = attachmentOutput{
			PartID:      d.PartID,
			Filename:    d.Filename,
			MimeType:    d.MimeType,
			Disposition: d.Disposition,
			Size:        d.Size,
			SizeHuman:   formatSize(d.Size),
		}
	}

	jsonBytes, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Found %d attachment(s):\n%s", len(descriptors), jsonBytes)), nil
}

func handleSaveAttachment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	req := transfer.Request{
		MessageID: stringArg(args, "messageId"),
		PartID:    stringArg(args, "partId"),
		FolderID:  stringArg(args, "folderId"),
		Rename:    stringArg(args, "rename"),
	}
	account := common.GetAccountFromArgs(sc, args)

	result, err := sc.Service().TransferAttachment(ctx, account, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save attachment: %v", err)), nil
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved %s (%s):\n%s", result.Filename, formatSize(result.Size), jsonBytes)), nil
}

func handleBulkSave(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	reqs, err := bulkRequests(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defaults := transfer.Defaults{
		FolderID: stringArg(args, "folderId"),
		Rename:   stringArg(args, "rename"),
	}
	account := common.GetAccountFromArgs(sc, args)

	results := sc.Service().TransferAttachmentsBulk(ctx, account, reqs, defaults)
	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

// bulkRequests reads the items of a bulk save either from "attachments" or
// from "messageId" plus "partIds".
func bulkRequests(args map[string]any) ([]transfer.Request, error) {
	if raw, ok := args["attachments"]; ok && raw != nil {
		return batch.ParseRequests(raw, "attachments")
	}

	messageID := stringArg(args, "messageId")
	if messageID == "" {
		return nil, fmt.Errorf("attachments is required (or messageId with partIds)")
	}
	partIDs, err := batch.ParseStringOrArray(args["partIds"], "partIds")
	if err != nil {
		return nil, err
	}

	reqs := make([]transfer.Request, len(partIDs))
	for i, partID := range partIDs {
		reqs[i] = transfer.Request{MessageID: messageID, PartID: partID}
	}
	return reqs, nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
