package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"swapsum/pkg/contracts/domain"
)

func TestSelfExchangeFilter_Mark(t *testing.T) {
	pairs := map[string]string{
		"EntityA": "ClientA",
		"EntityB": "ClientB",
	}
	eligible := []string{"ClientA", "ClientB"}

	tests := []struct {
		name   string
		record domain.ExchangeRecord
		want   bool
	}{
		{
			name:   "matching pair is flagged",
			record: domain.ExchangeRecord{Client: "ClientA", SourceEntity: "EntityA"},
			want:   true,
		},
		{
			name:   "trimmed values still match",
			record: domain.ExchangeRecord{Client: " ClientA ", SourceEntity: "  EntityA "},
			want:   true,
		},
		{
			name:   "entity mapped to a different client",
			record: domain.ExchangeRecord{Client: "ClientA", SourceEntity: "EntityB"},
			want:   false,
		},
		{
			name:   "client not in eligible set",
			record: domain.ExchangeRecord{Client: "ClientC", SourceEntity: "EntityA"},
			want:   false,
		},
		{
			name:   "unknown entity",
			record: domain.ExchangeRecord{Client: "ClientA", SourceEntity: "EntityX"},
			want:   false,
		},
		{
			name:   "absent entity never matches",
			record: domain.ExchangeRecord{Client: "ClientA"},
			want:   false,
		},
		{
			name:   "absent client never matches",
			record: domain.ExchangeRecord{SourceEntity: "EntityA"},
			want:   false,
		},
	}

	filter := NewSelfExchangeFilter(pairs, eligible)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []domain.AnnotatedRecord{{ExchangeRecord: tt.record}}
			filter.Mark(records)
			assert.Equal(t, tt.want, records[0].SelfExchange)
		})
	}
}

func TestSelfExchangeFilter_IndependentOfOtherFlags(t *testing.T) {
	filter := NewSelfExchangeFilter(map[string]string{"EntityA": "ClientA"}, []string{"ClientA"})

	records := []domain.AnnotatedRecord{{
		ExchangeRecord: domain.ExchangeRecord{Client: "ClientA", SourceEntity: "EntityA"},
		Classification: domain.ClassificationOutOfSpec,
		Duplicate:      true,
	}}
	filter.Mark(records)

	// Excluded records keep their audit annotations.
	assert.True(t, records[0].SelfExchange)
	assert.True(t, records[0].Duplicate)
	assert.Equal(t, domain.ClassificationOutOfSpec, records[0].Classification)
}

func TestSelfExchangeFilter_EmptyConfig(t *testing.T) {
	filter := NewSelfExchangeFilter(nil, nil)
	records := []domain.AnnotatedRecord{{
		ExchangeRecord: domain.ExchangeRecord{Client: "ClientA", SourceEntity: "EntityA"},
	}}
	filter.Mark(records)
	assert.False(t, records[0].SelfExchange)
}
