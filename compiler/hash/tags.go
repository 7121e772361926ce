package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the batch serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every cached program key and every frame that carries a batch hash.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing batch hashes.
const HashVersion byte = 1

const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	TagBatch byte = 0x01 // root type name + entry count
	TagEntry byte = 0x02 // path + data offset
)
