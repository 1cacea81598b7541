// Package drive stores transferred attachments as files in Google Drive.
//
// A Client is bound to one account and implements transfer.StorageHandle.
// Files are created with a single multipart upload; the returned metadata
// carries the file id and a browser link.
package drive
