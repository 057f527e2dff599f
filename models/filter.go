package models

// RecordFilter narrows ListEntries results. Zero value lists every
// record that is not soft-deleted.
type RecordFilter struct {
	// SyncStates keeps only records in one of the given states.
	SyncStates []SyncState

	// NaturalKeyPrefix keeps only records whose natural key starts with
	// the given prefix.
	NaturalKeyPrefix string

	// IncludeDeleted also returns tombstoned records awaiting remote
	// acknowledgement.
	IncludeDeleted bool

	// Limit bounds the result size. Zero means no limit.
	Limit uint64
}
