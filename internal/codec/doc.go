// Package codec reads and writes the two persisted binary formats.
//
// Both formats open with a 4-byte magic (ASCII plus NUL) and a
// little-endian uint32 version. All integers are little-endian, all lists
// are a uint32 count followed by elements, and all strings are a uint32
// byte length followed by raw UTF-8.
//
// Value document ("BVT\x00"): one root Table.
//
//	value   = tag:uint32 payload
//	Empty   = (no payload)
//	Table   = count:uint32 { key:string value }
//	List    = count:uint32 { value }
//	String  = string
//	Integer = int64
//	Float   = float64 bits
//	Boolean = uint32 (0 or 1)
//
// Operation graph ("BOG\x00"): sections "FIS\x00" (file table),
// "ROP\x00" (root ids) and "OPS\x00" (operation records).
//
// Readers consume the whole input and reject trailing bytes. Any framing
// problem is a *CorruptStateError, which callers treat as "no prior state".
package codec
