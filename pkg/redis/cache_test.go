package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	f.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func TestNameCache(t *testing.T) {
	kv := &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
	c := NewNameCache(kv, time.Minute)

	_, ok := c.Get(context.Background(), "c1")
	assert.False(t, ok)

	c.Set(context.Background(), "c1", "Acme")
	name, ok := c.Get(context.Background(), "c1")
	assert.True(t, ok)
	assert.Equal(t, "Acme", name)
	assert.Equal(t, time.Minute, kv.ttls["company_name:c1"])

	c.Set(context.Background(), "c2", "")
	_, ok = kv.values["company_name:c2"]
	assert.False(t, ok)
}

func TestNameCache_NilIsMiss(t *testing.T) {
	var c *NameCache
	_, ok := c.Get(context.Background(), "c1")
	assert.False(t, ok)
	c.Set(context.Background(), "c1", "Acme")
}
