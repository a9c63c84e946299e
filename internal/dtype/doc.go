// Package dtype converts between raw HDF5 element bytes and Go values.
//
// Integer, floating-point and fixed-length string classes are supported.
// Numeric elements convert into any Go numeric destination following Go's
// conversion rules, so floats read into integers truncate. Variable-length
// strings are resolved by the caller, which owns the global heap, and
// stored with [Strings].
//
// [Encode] and [ForGoType] serve the writer.
package dtype
