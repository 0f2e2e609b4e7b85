package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothlead/backend/internal/enrichment"
	"github.com/boothlead/backend/internal/models"
	"github.com/boothlead/backend/internal/scope"
	"github.com/boothlead/backend/pkg/metrics"
	"github.com/boothlead/backend/pkg/queue"
)

type fakeApplier struct {
	mu    sync.Mutex
	calls []string
	errs  []error
}

func (f *fakeApplier) Apply(_ context.Context, s scope.CompanyScope, leadID string) (models.AIInsights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s.Role+"/"+s.ActiveCompanyID+"/"+leadID)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return models.AIInsights{}, err
	}
	return models.AIInsights{BuyingSignals: []string{"x"}}, nil
}

type fakeQueue struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (q *fakeQueue) Dequeue(ctx context.Context) (*queue.Job, string, error) {
	q.mu.Lock()
	if len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		return job, queue.QueueEnrichment, nil
	}
	q.mu.Unlock()
	<-ctx.Done()
	return nil, "", ctx.Err()
}

func (q *fakeQueue) Retry(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Attempt++
	q.retried = append(q.retried, job)
	return nil
}

func job(t *testing.T, id string) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(queue.EnrichmentPayload{LeadID: id, CompanyID: "c1", Role: scope.RoleExhibitor})
	require.NoError(t, err)
	return &queue.Job{ID: "job-" + id, Type: queue.JobTypeEnrichment, Payload: raw}
}

func TestProcess(t *testing.T) {
	m := metrics.New()
	applier := &fakeApplier{errs: []error{nil, enrichment.ErrLeadNotFound, errors.New("store down")}}
	p := NewEnrichmentProcessor(applier, &fakeQueue{}, m, nil)

	require.NoError(t, p.Process(context.Background(), job(t, "1")))
	require.NoError(t, p.Process(context.Background(), job(t, "2")))
	assert.Error(t, p.Process(context.Background(), job(t, "3")))
	assert.Error(t, p.Process(context.Background(), &queue.Job{Type: "other"}))

	assert.Equal(t, []string{"exhibitor/c1/1", "exhibitor/c1/2", "exhibitor/c1/3"}, applier.calls)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `boothlead_enrichment_jobs_total{result="applied"} 1`)
	assert.Contains(t, w.Body.String(), `boothlead_enrichment_jobs_total{result="dropped"} 1`)
}

func TestRun_RetriesFailedJobs(t *testing.T) {
	applier := &fakeApplier{errs: []error{errors.New("store down")}}
	q := &fakeQueue{jobs: []*queue.Job{job(t, "1"), job(t, "2")}}
	p := NewEnrichmentProcessor(applier, q, nil, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		applier.mu.Lock()
		defer applier.mu.Unlock()
		return len(applier.calls) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	q.mu.Lock()
	defer q.mu.Unlock()
	require.Len(t, q.retried, 1)
	assert.Equal(t, "job-1", q.retried[0].ID)
	assert.Equal(t, 1, q.retried[0].Attempt)
}
