package dataprocessing

import (
	"sort"
	"time"

	"swapsum/pkg/contracts/domain"
)

// DefaultDedupWindow is the trailing window within which a repeat exchange
// for the same vehicle is treated as a duplicate of the previous one.
const DefaultDedupWindow = time.Hour

// DuplicateDetector flags records that repeat an exchange for the same
// vehicle within a trailing time window.
type DuplicateDetector struct {
	window time.Duration
}

// NewDuplicateDetector creates a detector with the given window. A zero or
// negative window falls back to DefaultDedupWindow.
func NewDuplicateDetector(window time.Duration) *DuplicateDetector {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DuplicateDetector{window: window}
}

// Window returns the configured dedup window.
func (d *DuplicateDetector) Window() time.Duration { return d.window }

// Mark sets the Duplicate flag on each record that has an earlier record for
// the same vehicle within the window. Records are annotated in place; their
// order is never changed.
//
// Each vehicle's chain is walked once in (vehicle, timestamp) order and a
// record is compared only against its immediate predecessor in that order,
// with timestamp ties broken by original input position. The window bound is
// inclusive: a gap of exactly the window still counts as a duplicate, a zero
// gap does not. Records with no vehicle identifier or no usable timestamp
// are exempt.
func (d *DuplicateDetector) Mark(records []domain.AnnotatedRecord) {
	idx := make([]int, 0, len(records))
	for i := range records {
		if records[i].Vehicle == "" || !records[i].TimeValid {
			continue
		}
		idx = append(idx, i)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := &records[idx[a]], &records[idx[b]]
		if ra.Vehicle != rb.Vehicle {
			return ra.Vehicle < rb.Vehicle
		}
		return ra.ExchangedAt.Before(rb.ExchangedAt)
	})

	for k := 1; k < len(idx); k++ {
		prev, cur := &records[idx[k-1]], &records[idx[k]]
		if prev.Vehicle != cur.Vehicle {
			continue
		}
		gap := cur.ExchangedAt.Sub(prev.ExchangedAt)
		if gap > 0 && gap <= d.window {
			cur.Duplicate = true
		}
	}
}
