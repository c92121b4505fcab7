package ratelimit

import (
	"sync"
	"time"
)

const shardCount = 32

// shard is one lock-protected partition of the registry's IP → Bucket map.
type shard struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// BucketRegistry is the concurrent IP → Bucket map. It shards its keyspace
// across a fixed number of independently-locked partitions so that
// concurrent requests for different IPs never contend on the same mutex,
// matching the teacher's per-entry-locking idiom for its in-memory
// rate-limit state.
type BucketRegistry struct {
	cfg        RateConfig
	shards     [shardCount]*shard
	evictAfter time.Duration

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewBucketRegistry creates an empty registry. evictAfter is the idle
// duration (time since a bucket's last refill) after which a bucket becomes
// eligible for eviction; a bucket with a live future blocked_until is never
// evicted regardless of idle time.
func NewBucketRegistry(cfg RateConfig, evictAfter time.Duration) *BucketRegistry {
	r := &BucketRegistry{
		cfg:         cfg,
		evictAfter:  evictAfter,
		stopCleanup: make(chan struct{}),
	}
	for i := range r.shards {
		r.shards[i] = &shard{buckets: make(map[string]*Bucket)}
	}
	return r
}

func (r *BucketRegistry) shardFor(ip string) *shard {
	return r.shards[fnv32(ip)%shardCount]
}

// fnv32 is a small non-cryptographic hash used only to distribute IP keys
// across shards.
func fnv32(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// GetOrCreate returns the bucket for ip, creating a fresh one (tokens =
// max_tokens, last_refill = first_seen = now, no block) if this is the
// first time ip has been seen by this registry.
func (r *BucketRegistry) GetOrCreate(ip string, now time.Time) *Bucket {
	s := r.shardFor(ip)
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[ip]; ok {
		return b
	}
	b := NewBucket(now, r.cfg)
	s.buckets[ip] = b
	return b
}

// Config returns the RateConfig this registry's buckets are governed by.
func (r *BucketRegistry) Config() RateConfig { return r.cfg }

// Size returns the total number of buckets currently tracked, across all
// shards. Intended for the bucket-registry-size metrics gauge.
func (r *BucketRegistry) Size() int {
	total := 0
	for _, s := range r.shards {
		s.mu.Lock()
		total += len(s.buckets)
		s.mu.Unlock()
	}
	return total
}

// BlockedCount returns the number of tracked buckets whose block window
// covers now, across all shards. Intended for the blocked-IPs metrics
// gauge.
func (r *BucketRegistry) BlockedCount(now time.Time) int {
	total := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for _, b := range s.buckets {
			if b.IsBlockedAt(now) {
				total++
			}
		}
		s.mu.Unlock()
	}
	return total
}

// Evict drops buckets idle longer than evictAfter, skipping any bucket
// with a live block window so eviction never weakens an active block.
// Returns the number of buckets removed.
func (r *BucketRegistry) Evict(now time.Time) int {
	removed := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for ip, b := range s.buckets {
			if b.IsBlockedAt(now) {
				continue
			}
			if b.IdleSince(now) >= r.evictAfter {
				delete(s.buckets, ip)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// StartCleanup launches a goroutine that calls Evict on interval until
// Stop is called, mirroring the teacher's memory-limiter cleanup loop.
func (r *BucketRegistry) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				r.Evict(now)
			case <-r.stopCleanup:
				return
			}
		}
	}()
}

// Stop halts the cleanup goroutine started by StartCleanup. Safe to call
// multiple times or without a prior StartCleanup call.
func (r *BucketRegistry) Stop() {
	r.cleanupOnce.Do(func() {
		close(r.stopCleanup)
	})
}
