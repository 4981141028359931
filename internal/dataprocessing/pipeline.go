package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"swapsum/pkg/contracts/domain"
)

// PipelineConfig holds the tunable parts of a pipeline run.
type PipelineConfig struct {
	DedupWindow     time.Duration
	SelfExchange    map[string]string // source entity → client
	EligibleClients []string
}

// Pipeline sequences the record stages: duplicate detection, classification,
// self-exchange filtering, aggregation. It holds no state between runs and
// is safe for concurrent invocations, each run operating on its own copies.
type Pipeline struct {
	detector   *DuplicateDetector
	filter     *SelfExchangeFilter
	aggregator *Aggregator
	logger     *slog.Logger
}

// NewPipeline wires the pipeline stages from configuration.
func NewPipeline(cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		detector:   NewDuplicateDetector(cfg.DedupWindow),
		filter:     NewSelfExchangeFilter(cfg.SelfExchange, cfg.EligibleClients),
		aggregator: NewAggregator(),
		logger:     logger.With(slog.String("component", "pipeline")),
	}
}

// Run executes one complete pipeline invocation over the record set and
// returns the per-client summaries plus the excluded-records table. The
// input slice is never mutated; all annotations are attached to working
// copies, which are returned alongside the result for sinks that persist
// record-level detail. A single consistent ordering of the record set, the
// input order, is established here and reused by every stage.
func (p *Pipeline) Run(ctx context.Context, records []domain.ExchangeRecord) (*domain.AggregationResult, []domain.AnnotatedRecord, error) {
	start := time.Now()

	annotated := make([]domain.AnnotatedRecord, len(records))
	for i := range records {
		annotated[i] = domain.AnnotatedRecord{
			ExchangeRecord: records[i],
			Classification: domain.ClassificationNone,
		}
	}

	p.detector.Mark(annotated)
	for i := range annotated {
		annotated[i].Classification = Classify(annotated[i].Manufacturer, annotated[i].Battery)
	}
	p.filter.Mark(annotated)

	result := p.aggregator.Aggregate(annotated)

	p.logger.InfoContext(ctx, "pipeline run completed",
		slog.Int("records", len(records)),
		slog.Int("clients", len(result.Clients)),
		slog.Int("duplicates", result.DuplicateCount),
		slog.Int("self_exchanges", result.SelfExchangeCount),
		slog.Int("dropped_missing_client", result.DroppedMissingClient),
		slog.Int("dropped_missing_user", result.DroppedMissingUser),
		slog.Duration("elapsed", time.Since(start)))

	return result, annotated, nil
}
