// Package google turns stored per-account OAuth2 credentials into
// authenticated HTTP clients for the Gmail and Drive APIs.
//
// Credentials live in one JSON file per account named
// .oauth2.<account>.json inside the credentials directory. Obtaining them
// is left to an external authorization flow; this package only reads them
// and writes back refreshed access tokens.
package google
