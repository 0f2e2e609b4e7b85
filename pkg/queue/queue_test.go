package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLists struct {
	pushed map[string][]string
	popErr error
}

func newFakeLists() *fakeLists { return &fakeLists{pushed: map[string][]string{}} }

func (f *fakeLists) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		switch t := v.(type) {
		case []byte:
			f.pushed[key] = append(f.pushed[key], string(t))
		case string:
			f.pushed[key] = append(f.pushed[key], t)
		}
	}
	return redis.NewIntResult(int64(len(f.pushed[key])), nil)
}

func (f *fakeLists) BLPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	if f.popErr != nil {
		return redis.NewStringSliceResult(nil, f.popErr)
	}
	for _, k := range keys {
		if len(f.pushed[k]) > 0 {
			v := f.pushed[k][0]
			f.pushed[k] = f.pushed[k][1:]
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func TestEnqueueDequeueEnrichment(t *testing.T) {
	lists := newFakeLists()
	q := NewQueue(lists, nil)
	require.NoError(t, q.EnqueueEnrichment(context.Background(), EnrichmentPayload{LeadID: "7", CompanyID: "c1", Role: "exhibitor"}))

	job, key, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, QueueEnrichment, key)
	assert.Equal(t, JobTypeEnrichment, job.Type)

	p, err := DecodeEnrichment(job)
	require.NoError(t, err)
	assert.Equal(t, EnrichmentPayload{LeadID: "7", CompanyID: "c1", Role: "exhibitor"}, p)
}

func TestEnqueueEnrichment_RequiresLead(t *testing.T) {
	assert.Error(t, NewQueue(newFakeLists(), nil).EnqueueEnrichment(context.Background(), EnrichmentPayload{}))
}

func TestDequeue_EmptyAndInvalid(t *testing.T) {
	lists := newFakeLists()
	q := NewQueue(lists, nil)

	job, _, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)

	lists.pushed[QueueEnrichment] = []string{"not json"}
	job, _, err = q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)

	lists.popErr = errors.New("connection refused")
	_, _, err = q.Dequeue(context.Background())
	assert.Error(t, err)
}

func TestRetry_MovesToDLQAfterMaxRetries(t *testing.T) {
	lists := newFakeLists()
	q := NewQueue(lists, nil)
	job := &Job{ID: "j1", Type: JobTypeEnrichment, Payload: json.RawMessage(`{"lead_id":"1"}`)}

	for i := 1; i < MaxRetries; i++ {
		require.NoError(t, q.Retry(context.Background(), job))
		assert.Len(t, lists.pushed[QueueEnrichment], i)
	}
	require.NoError(t, q.Retry(context.Background(), job))
	assert.Equal(t, MaxRetries, job.Attempt)
	assert.Len(t, lists.pushed[QueueDLQ], 1)
}

func TestDecodeEnrichment_WrongType(t *testing.T) {
	_, err := DecodeEnrichment(&Job{Type: "email"})
	assert.Error(t, err)
}
