package heap

import "errors"

// Sentinel errors for the kinds of failure a table or scan can report.
var (
	ErrFileNotFound       = errors.New("heap: file not found")
	ErrIO                 = errors.New("heap: io error")
	ErrOOM                = errors.New("heap: out of memory")
	ErrNonExistingRecord  = errors.New("heap: non-existing record")
	ErrNoMoreTuples       = errors.New("heap: no more tuples")
	ErrPoolHasPinnedPages = errors.New("heap: pool has pinned pages")
	ErrGeneric            = errors.New("heap: invalid argument")
)
