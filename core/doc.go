// Package core reads the object syntax of PDF files.
//
// Objects are plain Go values: [Null], [Bool], [Int], [Real], [String],
// [Name], [Array] and [Dict], plus [*Stream] for dictionaries carrying
// data and [IndirectRef] for references to numbered objects.
//
// A [Scanner] splits an in-memory buffer into tokens and a [Parser] builds
// objects from them:
//
//	obj, err := core.NewParser(data[offset:]).ParseIndirectObject()
//
// [XRefParser] reads classic cross-reference tables, xref streams and
// incremental updates. [ObjectStream] unpacks compressed objects, and
// [Stream.Decode] undoes the stream filters.
package core
