// Package transfer copies message attachments into a storage backend.
//
// A Service resolves per-account mail and storage handles and exposes three
// operations: listing the attachments of a message, transferring a single
// attachment and transferring a list of attachments in bulk. Bulk transfers
// run strictly in order, one item at a time, and never fail as a whole:
// every request produces exactly one Result at the same index.
//
//	svc := transfer.NewService(mailProvider, storageProvider,
//	    transfer.WithLogger(logger))
//	results := svc.TransferAttachmentsBulk(ctx, "default", requests,
//	    transfer.Defaults{FolderID: "1AbC"})
package transfer
