package ichain

// Stats counts the work a chain has done. Retrieve a snapshot with
// Chain.Stats.
type Stats struct {
	// EntriesRead is the number of events decoded from input files.
	EntriesRead int64

	// ListsLoaded counts entry lists found in the cache by
	// RetrieveEntryLists.
	ListsLoaded int

	// ListsBuilt counts entry lists started from scratch because the
	// cache had none.
	ListsBuilt int
}
