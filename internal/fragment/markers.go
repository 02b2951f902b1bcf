package fragment

// Marker vocabulary for annotated output. Insertions and deletions are
// wrapped in ins/del elements; the shared change class marks the wrappers
// that belong to a paired change, which drives both order normalization and
// net-change counts.
const (
	InsertedName = "ins"
	DeletedName  = "del"

	ClassInserted = "ins"
	ClassDeleted  = "del"
	ClassChange   = "change"
)

// IsInsertion reports whether f is an insertion wrapper emitted by the diff
// engine.
func (f *Fragment) IsInsertion() bool {
	return f.Name == InsertedName && f.HasClass(ClassChange)
}

// IsDeletion reports whether f is a deletion wrapper emitted by the diff
// engine.
func (f *Fragment) IsDeletion() bool {
	return f.Name == DeletedName && f.HasClass(ClassChange)
}
