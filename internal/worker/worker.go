package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/enrichment"
	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/pkg/metrics"
	"github.com/boothlead/backend/pkg/queue"
)

// JobQueue is the queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Applier stores insights for one lead.
type Applier interface {
	Apply(ctx context.Context, s scope.CompanyScope, leadID string) (models.AIInsights, error)
}

// EnrichmentProcessor processes lead enrichment jobs: load the lead under the
// scope it was captured with, derive insights and write them back.
type EnrichmentProcessor struct {
	enricher Applier
	queue    JobQueue
	metrics  *metrics.Metrics
	logger   *zap.Logger
	backoff  time.Duration
}

// NewEnrichmentProcessor creates an enrichment processor.
func NewEnrichmentProcessor(enricher Applier, q JobQueue, m *metrics.Metrics, logger *zap.Logger) *EnrichmentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentProcessor{enricher: enricher, queue: q, metrics: m, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one enrichment job. A lead that no longer exists or
// left the job's scope is dropped without error.
func (p *EnrichmentProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodeEnrichment(job)
	if err != nil {
		return fmt.Errorf("decode job: %w", err)
	}
	s := scope.CompanyScope{Role: payload.Role, ActiveCompanyID: payload.CompanyID}
	insights, err := p.enricher.Apply(ctx, s, payload.LeadID)
	if errors.Is(err, enrichment.ErrLeadNotFound) {
		p.logger.Info("enrichment skipped, lead not visible", zap.String("lead_id", payload.LeadID), zap.String("job_id", job.ID))
		p.metrics.EnrichmentJob(metrics.EnrichmentDropped)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enrich lead %s: %w", payload.LeadID, err)
	}
	p.metrics.EnrichmentJob(metrics.EnrichmentApplied)
	p.logger.Debug("enrichment job done",
		zap.String("job_id", job.ID),
		zap.String("lead_id", payload.LeadID),
		zap.Strings("signals", insights.BuyingSignals))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EnrichmentProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("enrichment worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			p.metrics.EnrichmentJob(metrics.EnrichmentRetried)
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *EnrichmentProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
