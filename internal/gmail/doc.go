// Package gmail reads message part trees and attachment bodies from the
// Gmail API.
//
// A Client is bound to one account and implements attachment.MailHandle.
// Every MessageTree call fetches the message again, so attachment ids are
// always taken from the latest response.
//
//	client, err := gmail.NewClientForAccount(ctx, tokens, "work")
//	if err != nil {
//	    return err
//	}
//	tree, err := client.MessageTree(ctx, messageID)
package gmail
