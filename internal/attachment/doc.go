// Package attachment locates and decodes attachments inside a message's
// nested part structure.
//
// A message is represented as a Tree: an arena of Nodes addressed by index,
// built at the mail-source boundary by a TreeBuilder. Every node is either a
// container (a multipart/* part with children and no payload of its own) or
// a leaf (actual content, possibly an attachment). Anything that fits
// neither shape is rejected with a StructureError.
//
// Part ids are the stable identity of an attachment. Fetch ids are not:
// the mail source may hand out a different fetch id for the same part on
// every call. The Resolver therefore re-reads the message tree before each
// download and never reuses a fetch id from an earlier snapshot.
//
// Example usage:
//
//	resolver := attachment.NewResolver(attachment.DefaultMaxDepth)
//	descriptors, err := resolver.Extract(ctx, mailHandle, messageID)
//	if err != nil {
//	    return err
//	}
//
//	resolved, err := resolver.Resolve(ctx, mailHandle, messageID, descriptors[0].PartID)
//	if err != nil {
//	    return err
//	}
//	data, err := attachment.Decode(resolved.Encoded)
package attachment
