package dataprocessing

import (
	"swapsum/pkg/contracts/domain"
)

// TotalRowLabel is the sentinel user label on the synthetic total row of
// every summary table.
const TotalRowLabel = "合計"

// Aggregator builds the per-client summary tables from annotated records.
type Aggregator struct {
	manufacturers []string
}

// NewAggregator creates an aggregator over the canonical manufacturer list.
func NewAggregator() *Aggregator {
	return &Aggregator{manufacturers: Manufacturers}
}

// Aggregate partitions annotated records into self-exchange and eligible
// sets, groups the eligible set by client then user in first-seen order, and
// produces one summary table per client plus the excluded-records table.
//
// Within each (client, user) bucket, non-duplicate records feed the in-spec,
// out-of-spec and total columns; duplicate records feed only the
// duplicate-excluded column. Manufacturers without a threshold rule, and
// unrecognized manufacturers, contribute to total and duplicate-excluded
// only. Records without a client are dropped entirely, records without a
// user are dropped from user-level grouping; both counts are surfaced on the
// result rather than silently discarded.
func (a *Aggregator) Aggregate(records []domain.AnnotatedRecord) *domain.AggregationResult {
	result := &domain.AggregationResult{
		Summaries:   make(map[string]*domain.SummaryTable),
		RecordCount: len(records),
	}

	known := make(map[string]struct{}, len(a.manufacturers))
	for _, m := range a.manufacturers {
		known[m] = struct{}{}
	}

	// rowIndex maps client → user → position in that client's row slice.
	rowIndex := make(map[string]map[string]int)

	for i := range records {
		rec := &records[i]

		if rec.Duplicate {
			result.DuplicateCount++
		}
		if rec.SelfExchange {
			result.SelfExchangeCount++
			result.Excluded.Records = append(result.Excluded.Records, *rec)
			continue
		}
		if rec.Client == "" {
			result.DroppedMissingClient++
			continue
		}

		table, ok := result.Summaries[rec.Client]
		if !ok {
			table = &domain.SummaryTable{Client: rec.Client}
			result.Summaries[rec.Client] = table
			result.Clients = append(result.Clients, rec.Client)
			rowIndex[rec.Client] = make(map[string]int)
		}

		if rec.User == "" {
			result.DroppedMissingUser++
			continue
		}

		users := rowIndex[rec.Client]
		pos, ok := users[rec.User]
		if !ok {
			pos = len(table.Rows)
			users[rec.User] = pos
			table.Rows = append(table.Rows, newSummaryRow(rec.User, a.manufacturers))
		}
		row := &table.Rows[pos]

		maker := rec.Manufacturer
		if _, ok := known[maker]; !ok {
			// Unknown manufacturers still count toward the row grand totals
			// so the per-client conservation invariant holds.
			if rec.Duplicate {
				row.GrandDup++
			} else {
				row.GrandTotal++
			}
			continue
		}

		counts := row.Manufacturers[maker]
		if rec.Duplicate {
			counts.DupExcluded++
			row.GrandDup++
		} else {
			counts.Total++
			row.GrandTotal++
			switch rec.Classification {
			case domain.ClassificationInSpec:
				counts.InSpec++
			case domain.ClassificationOutOfSpec:
				counts.OutOfSpec++
			}
		}
		row.Manufacturers[maker] = counts
	}

	for _, client := range result.Clients {
		table := result.Summaries[client]
		table.TotalRow = a.totalRow(table.Rows)
	}

	return result
}

// newSummaryRow returns a row with zero-filled counts for every canonical
// manufacturer, so column structure is identical across clients.
func newSummaryRow(user string, manufacturers []string) domain.SummaryRow {
	row := domain.SummaryRow{
		User:          user,
		Manufacturers: make(map[string]domain.ManufacturerCounts, len(manufacturers)),
	}
	for _, m := range manufacturers {
		row.Manufacturers[m] = domain.ManufacturerCounts{}
	}
	return row
}

// totalRow sums every numeric column down the user rows.
func (a *Aggregator) totalRow(rows []domain.SummaryRow) domain.SummaryRow {
	total := newSummaryRow(TotalRowLabel, a.manufacturers)
	for _, row := range rows {
		for _, m := range a.manufacturers {
			c := total.Manufacturers[m]
			rc := row.Manufacturers[m]
			c.InSpec += rc.InSpec
			c.OutOfSpec += rc.OutOfSpec
			c.Total += rc.Total
			c.DupExcluded += rc.DupExcluded
			total.Manufacturers[m] = c
		}
		total.GrandTotal += row.GrandTotal
		total.GrandDup += row.GrandDup
	}
	return total
}

// SummaryColumns returns the fixed export column layout: the user column,
// then for each canonical manufacturer (in-spec, out-of-spec, total,
// duplicate-excluded), then the grand total and grand duplicate-excluded
// columns.
func SummaryColumns() []string {
	cols := make([]string, 0, 2+len(Manufacturers)*4)
	cols = append(cols, "user_name")
	for _, m := range Manufacturers {
		cols = append(cols,
			m+"_基準内",
			m+"_基準外",
			m+"_合計",
			m+"_重複除外",
		)
	}
	cols = append(cols, "総合計", "重複除外合計")
	return cols
}

// SummaryRowCells renders one summary row in the SummaryColumns layout.
func SummaryRowCells(row domain.SummaryRow) []int {
	cells := make([]int, 0, 1+len(Manufacturers)*4)
	for _, m := range Manufacturers {
		c := row.Manufacturers[m]
		cells = append(cells, c.InSpec, c.OutOfSpec, c.Total, c.DupExcluded)
	}
	cells = append(cells, row.GrandTotal, row.GrandDup)
	return cells
}
