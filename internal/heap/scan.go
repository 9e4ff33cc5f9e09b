package heap

import (
	"github.com/nvcode/slotdb/internal/expr"
	"github.com/nvcode/slotdb/internal/pagefile"
	"github.com/nvcode/slotdb/internal/record"
)

// Scan is a sequential cursor over a table's used slots, in ascending
// page then slot order, optionally filtered by a predicate. Grounded on
// original_source/record_mgr.c's RM_ScanMgmtData / startScan / next.
type Scan struct {
	table     *Table
	page      pagefile.PageID
	slot      int
	predicate expr.Expr
	done      bool
}

// StartScan begins a new scan. A nil predicate matches every record.
func (t *Table) StartScan(predicate expr.Expr) *Scan {
	return &Scan{table: t, page: firstDataPage, slot: 0, predicate: predicate}
}

// Next returns the next matching record, or ErrNoMoreTuples once the
// scan is exhausted.
func (s *Scan) Next() (*record.Record, RID, error) {
	if s.done {
		return nil, RID{}, ErrNoMoreTuples
	}

	for {
		total, err := s.table.pf.TotalNumPages()
		if err != nil {
			s.done = true
			// Page-fetch failure during scan surfaces as NoMoreTuples, a
			// lossy conflation kept for compatibility.
			return nil, RID{}, ErrNoMoreTuples
		}
		if s.page >= total {
			s.done = true
			return nil, RID{}, ErrNoMoreTuples
		}

		buf, err := s.table.pool.PinPage(s.page)
		if err != nil {
			s.done = true
			return nil, RID{}, ErrNoMoreTuples
		}
		view := newSlottedPageView(buf, s.table.recordSize)

		for ; s.slot < view.slotCapacity; s.slot++ {
			if !view.isUsed(s.slot) {
				continue
			}

			rec := record.NewRecord(s.table.schema)
			copy(rec.Data, view.payload(s.slot))
			rid := RID{Page: s.page, Slot: uint16(s.slot)}

			matched := true
			if s.predicate != nil {
				matched, err = expr.IsTrue(s.predicate, rec, s.table.schema)
				if err != nil {
					_ = s.table.pool.UnpinPage(s.page)
					return nil, RID{}, err
				}
			}

			if matched {
				rec.Page = uint32(rid.Page)
				rec.Slot = rid.Slot
				s.slot++
				if err := s.table.pool.UnpinPage(s.page); err != nil {
					return nil, RID{}, err
				}
				return rec, rid, nil
			}
		}

		if err := s.table.pool.UnpinPage(s.page); err != nil {
			s.done = true
			return nil, RID{}, err
		}
		s.slot = 0
		s.page++
	}
}

// Close releases any resources held by the scan. Scans pin at most one
// page at a time and unpin before returning, so Close has nothing to
// release; it exists to match the conventional start/next/close scan
// triad.
func (s *Scan) Close() error {
	s.done = true
	return nil
}
