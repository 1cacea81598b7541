package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/attachdrop/internal/server"
	"github.com/teemow/attachdrop/internal/tools/batch"
	"github.com/teemow/attachdrop/internal/transfer"
)

func newAttachmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attachments",
		Aliases: []string{"att"},
		Short:   "List and save email attachments from the shell",
		Long: `Run the attachment operations once without an MCP client.
All subcommands print JSON to stdout.`,
	}

	cmd.AddCommand(newAttachmentsListCmd())
	cmd.AddCommand(newAttachmentsSaveCmd())
	cmd.AddCommand(newAttachmentsBulkCmd())
	return cmd
}

func newAttachmentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <messageId>",
		Short: "List the attachments of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServerContext(cmd.Context(), func(sc *server.ServerContext) error {
				return runAttachmentsList(cmd.Context(), sc, cmd.OutOrStdout(), args[0])
			})
		},
	}
}

func newAttachmentsSaveCmd() *cobra.Command {
	var folderID, rename string

	cmd := &cobra.Command{
		Use:   "save <messageId> <partId>",
		Short: "Copy one attachment into storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := transfer.Request{MessageID: args[0], PartID: args[1], FolderID: folderID, Rename: rename}
			return withServerContext(cmd.Context(), func(sc *server.ServerContext) error {
				return runAttachmentsSave(cmd.Context(), sc, cmd.OutOrStdout(), req)
			})
		},
	}

	cmd.Flags().StringVar(&folderID, "folder", "", "Destination folder (Drive folder id or S3 key prefix)")
	cmd.Flags().StringVar(&rename, "rename", "", "Name to store the file under instead of the attachment filename")
	return cmd
}

func newAttachmentsBulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk <file.json|->",
		Short: "Copy several attachments into storage",
		Long: `Copy the attachments listed in a JSON file, or stdin when the argument is "-".

The file holds either an array of {"messageId", "partId", "folderId", "rename"}
objects or an object with that array under "attachments" plus batch-level
"folderId" and "rename" defaults.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readBulkInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			reqs, defaults, err := parseBulkFile(raw)
			if err != nil {
				return err
			}
			return withServerContext(cmd.Context(), func(sc *server.ServerContext) error {
				return runAttachmentsBulk(cmd.Context(), sc, cmd.OutOrStdout(), reqs, defaults)
			})
		},
	}
	return cmd
}

// withServerContext builds a ServerContext from the loaded configuration
// for the duration of fn.
func withServerContext(ctx context.Context, fn func(sc *server.ServerContext) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	sc, err := server.NewServerContext(ctx, cfg, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = sc.Shutdown()
	}()
	return fn(sc)
}

func runAttachmentsList(ctx context.Context, sc *server.ServerContext, w io.Writer, messageID string) error {
	descriptors, err := sc.Service().ExtractAttachments(ctx, sc.ResolveAccount(account), messageID)
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}
	return writeJSON(w, descriptors)
}

func runAttachmentsSave(ctx context.Context, sc *server.ServerContext, w io.Writer, req transfer.Request) error {
	result, err := sc.Service().TransferAttachment(ctx, sc.ResolveAccount(account), req)
	if err != nil {
		return fmt.Errorf("failed to save attachment: %w", err)
	}
	return writeJSON(w, result)
}

func runAttachmentsBulk(ctx context.Context, sc *server.ServerContext, w io.Writer, reqs []transfer.Request, defaults transfer.Defaults) error {
	results := sc.Service().TransferAttachmentsBulk(ctx, sc.ResolveAccount(account), reqs, defaults)
	summary := batch.Summarize(results)
	if err := writeJSON(w, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d attachments failed", summary.Failed, summary.Total)
	}
	return nil
}

func readBulkInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bulk file: %w", err)
	}
	return data, nil
}

// parseBulkFile accepts a bare request array or an object with
// "attachments" and batch defaults.
func parseBulkFile(raw []byte) ([]transfer.Request, transfer.Defaults, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, transfer.Defaults{}, fmt.Errorf("failed to parse bulk file: %w", err)
	}

	var defaults transfer.Defaults
	items := doc
	if obj, ok := doc.(map[string]any); ok {
		items, ok = obj["attachments"]
		if !ok {
			return nil, defaults, errors.New("bulk file must contain an attachments array")
		}
		defaults.FolderID, _ = obj["folderId"].(string)
		defaults.Rename, _ = obj["rename"].(string)
	}

	reqs, err := batch.ParseRequests(items, "attachments")
	if err != nil {
		return nil, defaults, err
	}
	return reqs, defaults, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
