package exporter

import (
	"fmt"
	"strconv"
	"time"

	"swapsum/pkg/contracts/domain"
)

// exportTimeLayout matches the timestamp format of the source exports.
const exportTimeLayout = "2006-01-02 15:04:05"

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBattery renders a battery reading, empty when absent
func formatBattery(b *float64) string {
	if b == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *b)
}

// formatTime renders an exchange timestamp, empty when it never parsed
func formatTime(t time.Time, valid bool) string {
	if !valid {
		return ""
	}
	return t.Format(exportTimeLayout)
}

// recordCells renders one exchange record in the input column order.
// Annotation columns are deliberately left out of external output.
func recordCells(rec *domain.ExchangeRecord) []string {
	return []string{
		rec.Client,
		rec.User,
		rec.Manufacturer,
		formatBattery(rec.Battery),
		rec.Vehicle,
		formatTime(rec.ExchangedAt, rec.TimeValid),
		rec.SourceEntity,
		rec.SourceGroup,
	}
}

// excludedCells renders one excluded record. The original cells are used
// when the parser captured them, so unmapped input columns survive; records
// built without Raw (direct construction) fall back to the mapped fields.
// Rows are padded to width so short input rows stay rectangular.
func excludedCells(rec *domain.ExchangeRecord, width int) []string {
	cells := rec.Raw
	if len(cells) == 0 {
		cells = recordCells(rec)
	}
	out := append([]string(nil), cells...)
	for len(out) < width {
		out = append(out, "")
	}
	return out
}
