// Package hash computes content hashes of update path batches. Two batches
// with the same root type name and the same entries in the same order hash
// identically, so the hash can key a program cache and tag wire frames.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/updater/vm"
)

// Batch computes the SHA-256 hash of a root type name and its entries.
func Batch(root string, entries []vm.PathEntry) [32]byte {
	return sha256.Sum256(Serialize(root, entries))
}

// Program computes the batch hash a program was compiled from.
func Program(p *vm.Program) [32]byte {
	return Batch(p.Root.String(), p.Entries)
}

// String renders a hash as lowercase hex.
func String(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
