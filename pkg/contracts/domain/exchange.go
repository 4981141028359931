package domain

import (
	"time"
)

// Classification is the battery-standard outcome for a single exchange record.
type Classification string

const (
	// ClassificationInSpec means the residual charge was within the
	// manufacturer's acceptable range at exchange time.
	ClassificationInSpec Classification = "in_spec"
	// ClassificationOutOfSpec means the residual charge violated the
	// manufacturer's threshold.
	ClassificationOutOfSpec Classification = "out_of_spec"
	// ClassificationNone means no threshold rule applies, either because the
	// battery reading is absent or the manufacturer has no defined rule.
	ClassificationNone Classification = "unclassified"
)

// ExchangeRecord represents one row of a battery-swap upload.
// Optional fields use pointers or the Valid flag so that "absent" stays
// distinguishable from zero values.
type ExchangeRecord struct {
	Client       string     `json:"client"`        // fleet operator (PT company)
	User         string     `json:"user"`          // staff member performing the swap
	Manufacturer string     `json:"manufacturer"`  // bicycle manufacturer name
	Battery      *float64   `json:"battery"`       // residual charge percent, nil when absent
	Vehicle      string     `json:"vehicle"`       // vehicle identifier, empty when absent
	ExchangedAt  time.Time  `json:"exchanged_at"`  // exchange timestamp
	TimeValid    bool       `json:"time_valid"`    // false when timestamp absent or unparsable
	SourceEntity string     `json:"source_entity"` // identity column used by self-exchange matching
	SourceGroup  string     `json:"source_group"`  // secondary identity column, retained for audit
	Raw          []string   `json:"-"`             // original cells, exported verbatim for excluded records
}

// AnnotatedRecord is a working copy of an ExchangeRecord with the derived
// per-record attributes attached. Pipeline stages annotate copies and never
// mutate caller-owned records.
type AnnotatedRecord struct {
	ExchangeRecord

	Classification Classification `json:"classification"`
	Duplicate      bool           `json:"duplicate"`
	SelfExchange   bool           `json:"self_exchange"`
}

// ManufacturerCounts holds the four tally columns kept per manufacturer in a
// summary row.
type ManufacturerCounts struct {
	InSpec       int `json:"in_spec"`
	OutOfSpec    int `json:"out_of_spec"`
	Total        int `json:"total"`
	DupExcluded  int `json:"duplicate_excluded"`
}

// SummaryRow is one line of a client summary table: the per-manufacturer
// tallies for a single user plus the row grand totals.
type SummaryRow struct {
	User          string                        `json:"user"`
	Manufacturers map[string]ManufacturerCounts `json:"manufacturers"`
	GrandTotal    int                           `json:"grand_total"`
	GrandDup      int                           `json:"grand_duplicate_excluded"`
}

// SummaryTable is the per-client rollup: one row per distinct user in
// first-seen order, followed by a synthetic total row.
type SummaryTable struct {
	Client   string       `json:"client"`
	Rows     []SummaryRow `json:"rows"`
	TotalRow SummaryRow   `json:"total_row"`
}

// ExcludedTable holds the self-exchange records removed from every client
// rollup. Records keep their full annotations for audit purposes; exporters
// strip the annotation columns before external output.
//
// Header is the original input header row, so exports can reproduce every
// input column alongside each record's Raw cells. When empty, exporters fall
// back to the configured column names.
type ExcludedTable struct {
	Header  []string          `json:"header,omitempty"`
	Records []AnnotatedRecord `json:"records"`
}

// AggregationResult is the complete output of one pipeline run. Results are
// owned by the caller; the pipeline keeps no state between runs.
type AggregationResult struct {
	// Clients preserves first-seen order of distinct client values.
	Clients   []string                 `json:"clients"`
	Summaries map[string]*SummaryTable `json:"summaries"`
	Excluded  ExcludedTable            `json:"excluded"`

	// Dropped-record accounting. The source silently discarded these; they
	// are surfaced so reporting totals can be reconciled against the input.
	DroppedMissingClient int `json:"dropped_missing_client"`
	DroppedMissingUser   int `json:"dropped_missing_user"`

	// Stage tallies for reporting and metrics.
	DuplicateCount    int `json:"duplicate_count"`
	SelfExchangeCount int `json:"self_exchange_count"`

	RecordCount int `json:"record_count"`
}
