// Package hash provides the identifier hash used for distinct-id tracking.
package hash

import "github.com/cespare/xxhash/v2"

// Bytes computes the xxHash64 of raw identifier bytes.
//
// Identifiers are hashed straight from a scan buffer, before an owned copy
// exists, so the hash never forces an allocation.
func Bytes(id []byte) uint64 {
	return xxhash.Sum64(id)
}
