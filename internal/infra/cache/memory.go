package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

const shardCount = 32

// MemoryStore is a sharded in-process cache. Entries hold encoded bytes and
// are replaced wholesale on Put, so readers never see a partial value.
type MemoryStore struct {
	shards [shardCount]*shard
	now    func() time.Time
	log    *zap.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type shard struct {
	mu    sync.RWMutex
	items map[string]*entry
}

type entry struct {
	payload   []byte
	expiresAt time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithLogger(log *zap.Logger) MemoryOption {
	return func(s *MemoryStore) { s.log = log }
}

// NewMemoryStore starts a janitor that drops expired entries every
// sweepInterval; a zero interval disables it. Call Close to stop it.
func NewMemoryStore(sweepInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:  time.Now,
		log:  zap.NewNop(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[string]*entry)}
	}
	for _, opt := range opts {
		opt(s)
	}
	if sweepInterval > 0 {
		go s.janitor(sweepInterval)
	} else {
		close(s.done)
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

func (s *MemoryStore) Get(_ context.Context, key string) (analysis.Result, bool, error) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.items[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.evict(sh, key, e)
		return nil, false, nil
	}
	r, err := decode(e.payload)
	if err != nil {
		s.log.Warn("dropping invalid cache entry", zap.String("cache_key", key), zap.Error(err))
		s.evict(sh, key, e)
		return nil, false, nil
	}
	return r, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, r analysis.Result, ttl time.Duration) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	e := &entry{payload: b, expiresAt: s.now().Add(ttl)}
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.items[key] = e
	sh.mu.Unlock()
	return nil
}

// evict removes key only if it still points at e, so a concurrent Put wins.
func (s *MemoryStore) evict(sh *shard, key string, e *entry) {
	sh.mu.Lock()
	if cur, ok := sh.items[key]; ok && cur == e {
		delete(sh.items, key)
	}
	sh.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.items {
			if !now.Before(e.expiresAt) {
				delete(sh.items, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("cache sweep", zap.Int("removed", n))
			}
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
