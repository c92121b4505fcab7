package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newAdjusterFixture(t *testing.T) (*BucketRegistry, *PostResponseAdjuster, func(time.Time)) {
	t.Helper()
	cfg := scenarioConfig()
	registry := NewBucketRegistry(cfg, time.Hour)
	adjuster := NewPostResponseAdjuster(registry, cfg)
	now := time.Unix(2, 0)
	adjuster.now = func() time.Time { return now }
	return registry, adjuster, func(t time.Time) { now = t }
}

func TestAdjustNoOpWhenNotCharged(t *testing.T) {
	registry, adjuster, _ := newAdjusterFixture(t)
	sc := &SecurityContext{IPAddress: "1.1.1.1", Charged: 0.0}
	adjuster.Adjust("1.1.1.1", sc, http.StatusNotFound)
	assert.Equal(t, 0, registry.Size())
}

func TestAdjustNoOpWhenScreened(t *testing.T) {
	registry, adjuster, _ := newAdjusterFixture(t)
	now := time.Unix(2, 0)
	registry.GetOrCreate("1.1.1.1", now).TryConsume(now, 1.0, registry.Config())

	sc := &SecurityContext{IPAddress: "1.1.1.1", Charged: 1.0, WasScreened: true}
	adjuster.Adjust("1.1.1.1", sc, http.StatusNotFound)

	bucket := registry.GetOrCreate("1.1.1.1", now)
	assert.InDelta(t, 29.0, bucket.Snapshot().Tokens, 1e-9)
}

func TestAdjustCacheHitRefund(t *testing.T) {
	registry, adjuster, _ := newAdjusterFixture(t)
	now := time.Unix(2, 0)
	registry.GetOrCreate("1.1.1.1", now).TryConsume(now, 1.0, registry.Config())

	sc := &SecurityContext{IPAddress: "1.1.1.1", Charged: 1.0}
	adjuster.Adjust("1.1.1.1", sc, http.StatusNotModified)

	bucket := registry.GetOrCreate("1.1.1.1", now)
	assert.InDelta(t, 29.5, bucket.Snapshot().Tokens, 1e-9)
}

func TestAdjustErrorPenalty(t *testing.T) {
	registry, adjuster, _ := newAdjusterFixture(t)
	now := time.Unix(2, 0)
	registry.GetOrCreate("1.1.1.1", now).TryConsume(now, 1.0, registry.Config())

	sc := &SecurityContext{IPAddress: "1.1.1.1", Charged: 1.0}
	adjuster.Adjust("1.1.1.1", sc, http.StatusInternalServerError)

	bucket := registry.GetOrCreate("1.1.1.1", now)
	assert.InDelta(t, 28.0, bucket.Snapshot().Tokens, 1e-9)
}

func TestAdjustNoOpOnPlainSuccess(t *testing.T) {
	registry, adjuster, _ := newAdjusterFixture(t)
	now := time.Unix(2, 0)
	registry.GetOrCreate("1.1.1.1", now).TryConsume(now, 1.0, registry.Config())

	sc := &SecurityContext{IPAddress: "1.1.1.1", Charged: 1.0}
	adjuster.Adjust("1.1.1.1", sc, http.StatusOK)

	bucket := registry.GetOrCreate("1.1.1.1", now)
	assert.InDelta(t, 29.0, bucket.Snapshot().Tokens, 1e-9)
}
