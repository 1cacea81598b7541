// Package s3store stores transferred attachments as objects in an S3
// bucket, or in any service speaking the S3 API.
//
// The folder of a transfer becomes a key prefix. Every object key also
// carries a random segment so two files with the same name never
// overwrite each other.
package s3store
