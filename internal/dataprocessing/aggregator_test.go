package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapsum/pkg/contracts/domain"
)

func eligibleRecord(client, user, maker string, class domain.Classification) domain.AnnotatedRecord {
	return domain.AnnotatedRecord{
		ExchangeRecord: domain.ExchangeRecord{Client: client, User: user, Manufacturer: maker},
		Classification: class,
	}
}

func TestAggregator_GroupsByClientAndUser(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("ClientB", "userY", "YAMAHA", domain.ClassificationInSpec),
		eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationOutOfSpec),
		eligibleRecord("ClientA", "userZ", "Panasonic", domain.ClassificationInSpec),
		eligibleRecord("ClientA", "userX", "DBS", domain.ClassificationInSpec),
	}

	result := NewAggregator().Aggregate(records)

	// First-seen order of distinct clients, then users within a client.
	assert.Equal(t, []string{"ClientB", "ClientA"}, result.Clients)

	a := result.Summaries["ClientA"]
	require.NotNil(t, a)
	require.Len(t, a.Rows, 2)
	assert.Equal(t, "userX", a.Rows[0].User)
	assert.Equal(t, "userZ", a.Rows[1].User)

	x := a.Rows[0]
	assert.Equal(t, 1, x.Manufacturers["Panasonic"].OutOfSpec)
	assert.Equal(t, 1, x.Manufacturers["Panasonic"].Total)
	assert.Equal(t, 1, x.Manufacturers["DBS"].InSpec)
	assert.Equal(t, 2, x.GrandTotal)

	// Zero-filled columns for manufacturers absent from the data.
	assert.Equal(t, domain.ManufacturerCounts{}, x.Manufacturers["KUROAD"])
	assert.Contains(t, x.Manufacturers, "シナネンサイクル")
}

func TestAggregator_TotalRow(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationInSpec),
		eligibleRecord("ClientA", "userY", "Panasonic", domain.ClassificationOutOfSpec),
		eligibleRecord("ClientA", "userY", "YAMAHA", domain.ClassificationInSpec),
	}
	records[2].Duplicate = true

	result := NewAggregator().Aggregate(records)
	table := result.Summaries["ClientA"]
	require.NotNil(t, table)

	total := table.TotalRow
	assert.Equal(t, TotalRowLabel, total.User)
	assert.Equal(t, 1, total.Manufacturers["Panasonic"].InSpec)
	assert.Equal(t, 1, total.Manufacturers["Panasonic"].OutOfSpec)
	assert.Equal(t, 2, total.Manufacturers["Panasonic"].Total)
	assert.Equal(t, 1, total.Manufacturers["YAMAHA"].DupExcluded)
	assert.Equal(t, 0, total.Manufacturers["YAMAHA"].Total)
	assert.Equal(t, 2, total.GrandTotal)
	assert.Equal(t, 1, total.GrandDup)
}

func TestAggregator_DuplicateGoesToDupColumnOnly(t *testing.T) {
	in := battery(30)
	dup := battery(10)
	records := []domain.AnnotatedRecord{
		{
			ExchangeRecord: domain.ExchangeRecord{Client: "ClientA", User: "userX", Manufacturer: "Panasonic", Battery: in},
			Classification: domain.ClassificationOutOfSpec,
		},
		{
			ExchangeRecord: domain.ExchangeRecord{Client: "ClientA", User: "userX", Manufacturer: "Panasonic", Battery: dup},
			Classification: domain.ClassificationInSpec,
			Duplicate:      true,
		},
	}

	result := NewAggregator().Aggregate(records)
	row := result.Summaries["ClientA"].Rows[0]

	counts := row.Manufacturers["Panasonic"]
	assert.Equal(t, 0, counts.InSpec)
	assert.Equal(t, 1, counts.OutOfSpec)
	assert.Equal(t, 1, counts.Total)
	assert.Equal(t, 1, counts.DupExcluded)
	assert.Equal(t, 1, row.GrandTotal)
	assert.Equal(t, 1, row.GrandDup)
}

func TestAggregator_SelfExchangeExcluded(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationInSpec),
		{
			ExchangeRecord: domain.ExchangeRecord{Client: "ClientA", User: "userX", Manufacturer: "Panasonic"},
			Classification: domain.ClassificationNone,
			SelfExchange:   true,
		},
	}

	result := NewAggregator().Aggregate(records)

	require.Len(t, result.Excluded.Records, 1)
	assert.True(t, result.Excluded.Records[0].SelfExchange)
	assert.Equal(t, 1, result.Summaries["ClientA"].TotalRow.GrandTotal)
}

func TestAggregator_UnclassifiedCountsTowardTotalOnly(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("ClientA", "userX", "KUROAD", domain.ClassificationNone),
	}

	result := NewAggregator().Aggregate(records)
	counts := result.Summaries["ClientA"].Rows[0].Manufacturers["KUROAD"]

	assert.Equal(t, 0, counts.InSpec)
	assert.Equal(t, 0, counts.OutOfSpec)
	assert.Equal(t, 1, counts.Total)
}

func TestAggregator_UnknownManufacturerOnlyInGrandTotal(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("ClientA", "userX", "BESV", domain.ClassificationNone),
	}

	result := NewAggregator().Aggregate(records)
	row := result.Summaries["ClientA"].Rows[0]

	for _, m := range Manufacturers {
		assert.Equal(t, domain.ManufacturerCounts{}, row.Manufacturers[m])
	}
	assert.Equal(t, 1, row.GrandTotal)
}

func TestAggregator_DroppedRecordAccounting(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("", "userX", "Panasonic", domain.ClassificationInSpec),
		eligibleRecord("ClientA", "", "Panasonic", domain.ClassificationInSpec),
		eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationInSpec),
	}

	result := NewAggregator().Aggregate(records)

	assert.Equal(t, 1, result.DroppedMissingClient)
	assert.Equal(t, 1, result.DroppedMissingUser)
	assert.Equal(t, 1, result.Summaries["ClientA"].TotalRow.GrandTotal)
}

// Per-client conservation: the sum of per-user total columns equals the
// count of eligible non-duplicate records with that client and a user.
func TestAggregator_ConservationInvariant(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationInSpec),
		eligibleRecord("ClientA", "userX", "YAMAHA", domain.ClassificationOutOfSpec),
		eligibleRecord("ClientA", "userY", "KUROAD", domain.ClassificationNone),
		eligibleRecord("ClientA", "userY", "BESV", domain.ClassificationNone),
		eligibleRecord("ClientB", "userZ", "DBS", domain.ClassificationInSpec),
	}
	dup := eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationInSpec)
	dup.Duplicate = true
	self := eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationInSpec)
	self.SelfExchange = true
	records = append(records, dup, self)

	result := NewAggregator().Aggregate(records)

	for _, client := range result.Clients {
		table := result.Summaries[client]
		want := 0
		for _, rec := range records {
			if rec.SelfExchange || rec.Duplicate || rec.Client != client || rec.User == "" {
				continue
			}
			want++
		}
		got := 0
		for _, row := range table.Rows {
			got += row.GrandTotal
		}
		assert.Equal(t, want, got, "client %s", client)
		assert.Equal(t, want, table.TotalRow.GrandTotal, "client %s total row", client)
	}
}

// Round-trip: re-deriving per-manufacturer totals from the concatenated user
// rows reproduces the totals computed directly from the eligible
// non-duplicate record set.
func TestAggregator_RoundTripTotals(t *testing.T) {
	records := []domain.AnnotatedRecord{
		eligibleRecord("ClientA", "userX", "Panasonic", domain.ClassificationInSpec),
		eligibleRecord("ClientA", "userY", "Panasonic", domain.ClassificationOutOfSpec),
		eligibleRecord("ClientB", "userZ", "Panasonic", domain.ClassificationInSpec),
		eligibleRecord("ClientB", "userZ", "DBS", domain.ClassificationOutOfSpec),
		eligibleRecord("ClientB", "userW", "シナネンサイクル", domain.ClassificationInSpec),
	}

	result := NewAggregator().Aggregate(records)

	derived := make(map[string]int)
	for _, client := range result.Clients {
		for _, row := range result.Summaries[client].Rows {
			for maker, counts := range row.Manufacturers {
				derived[maker] += counts.Total
			}
		}
	}

	direct := make(map[string]int)
	for _, rec := range records {
		direct[rec.Manufacturer]++
	}
	for maker, want := range direct {
		assert.Equal(t, want, derived[maker], "maker %s", maker)
	}
}

func TestSummaryColumns(t *testing.T) {
	cols := SummaryColumns()

	// user column + four columns per maker + the two grand columns.
	require.Equal(t, 3+len(Manufacturers)*4, len(cols))
	assert.Equal(t, "user_name", cols[0])
	assert.Equal(t, "Panasonic_基準内", cols[1])
	assert.Equal(t, "Panasonic_基準外", cols[2])
	assert.Equal(t, "Panasonic_合計", cols[3])
	assert.Equal(t, "Panasonic_重複除外", cols[4])
	assert.Equal(t, "総合計", cols[len(cols)-2])
	assert.Equal(t, "重複除外合計", cols[len(cols)-1])
}

func TestSummaryRowCells(t *testing.T) {
	row := newSummaryRow("userX", Manufacturers)
	row.Manufacturers["Panasonic"] = domain.ManufacturerCounts{InSpec: 1, OutOfSpec: 2, Total: 3, DupExcluded: 4}
	row.GrandTotal = 3
	row.GrandDup = 4

	cells := SummaryRowCells(row)
	// Four cells per maker plus the two grand columns; the user label is
	// not part of the numeric cells.
	require.Equal(t, 2+len(Manufacturers)*4, len(cells))
	assert.Equal(t, []int{1, 2, 3, 4}, cells[0:4])
	assert.Equal(t, 3, cells[len(cells)-2])
	assert.Equal(t, 4, cells[len(cells)-1])
}
