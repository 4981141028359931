package dataprocessing

import (
	"strings"

	"swapsum/pkg/contracts/domain"
)

// SelfExchangeFilter flags intra-company exchanges: records where a client's
// own staff swapped batteries on its own fleet under a separate source
// identity. Flagged records are excluded from client rollups and reported
// separately.
type SelfExchangeFilter struct {
	pairs    map[string]string
	eligible map[string]struct{}
}

// NewSelfExchangeFilter builds a filter from the source-entity → client
// mapping and the set of client names the exclusion applies to.
func NewSelfExchangeFilter(pairs map[string]string, eligibleClients []string) *SelfExchangeFilter {
	eligible := make(map[string]struct{}, len(eligibleClients))
	for _, c := range eligibleClients {
		eligible[strings.TrimSpace(c)] = struct{}{}
	}
	copied := make(map[string]string, len(pairs))
	for k, v := range pairs {
		copied[strings.TrimSpace(k)] = v
	}
	return &SelfExchangeFilter{pairs: copied, eligible: eligible}
}

// Mark sets the SelfExchange flag on records matching all three conditions:
// the trimmed client is in the eligible set, the trimmed source entity is a
// mapping key, and the mapping's value equals the record's client exactly.
// Absent columns never match. Classification and duplicate flags are left
// untouched so excluded records keep their audit annotations.
func (f *SelfExchangeFilter) Mark(records []domain.AnnotatedRecord) {
	if len(f.pairs) == 0 || len(f.eligible) == 0 {
		return
	}
	for i := range records {
		client := strings.TrimSpace(records[i].Client)
		if client == "" {
			continue
		}
		if _, ok := f.eligible[client]; !ok {
			continue
		}
		entity := strings.TrimSpace(records[i].SourceEntity)
		if entity == "" {
			continue
		}
		mapped, ok := f.pairs[entity]
		if !ok || mapped != client {
			continue
		}
		records[i].SelfExchange = true
	}
}
