// Package heap reads the two heaps HDF5 keeps variable-length data in.
//
// A [Local] heap ("HEAP") holds the member names of an old-style group;
// symbol table entries refer to them by offset.
//
// A [Global] heap collection ("GCOL") holds variable-length values such as
// strings. A dataset element refers to one object by the collection
// address and object index:
//
//	g, err := heap.ReadGlobal(r, collection)
//	data, err := g.Object(index)
package heap
