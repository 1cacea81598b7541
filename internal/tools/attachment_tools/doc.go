// Package attachment_tools provides the MCP tools that list message
// attachments and save them to the configured storage backend.
//
// Tools:
//   - gmail_list_attachments: attachments of a message, by part id
//   - gmail_save_attachment_to_drive: save one attachment
//   - gmail_bulk_save_attachments_to_drive: save many attachments, one
//     result per item
//
// Attachments are addressed by part id, which stays stable for the life of
// a message. Fetch ids are never exposed.
package attachment_tools
