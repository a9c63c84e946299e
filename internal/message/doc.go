// Package message decodes and encodes the header messages that make up
// HDF5 object headers.
//
// [Parse] decodes the messages this module reads:
//
//   - Dataspace, Datatype and Data Layout, which describe a dataset.
//   - Filter Pipeline, for chunked datasets.
//   - Link, Link Info and Symbol Table, which describe a group.
//   - Attribute and Continuation.
//
// Any other message comes back as [Raw]. The object header reader follows
// continuations through [ParseContinuation] directly.
//
// Messages the writer emits implement [Encoder].
package message
