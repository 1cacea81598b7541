// Package mailbox serves messages from a local directory of exported mail,
// for offline use and testing without a Gmail account.
//
// Message ids name files inside the directory:
//
//	invoice            -> <dir>/invoice.eml
//	invoice.eml        -> <dir>/invoice.eml
//	archive.mbox:3     -> third message of <dir>/archive.mbox
//
// Part ids follow the Gmail numbering: the top-level part of a multipart
// message has an empty id, its children are "0", "1", ... and nested
// parts append ".<n>" to their parent's id. Like Gmail, every MessageTree
// call hands out new fetch ids and invalidates the previous ones.
package mailbox
