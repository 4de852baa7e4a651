package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskdeck/pkg/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// Store Configuration
// =============================================================================

// Config holds cache timing settings.
type Config struct {
	StaleTime    time.Duration // 이 시간이 지나면 다음 Query 때 다시 가져옴
	FetchTimeout time.Duration // background refetch timeout
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		StaleTime:    30 * time.Second,
		FetchTimeout: 15 * time.Second,
	}
}

// Fetcher loads server truth for a partition.
type Fetcher func(ctx context.Context, key Key) (any, error)

// =============================================================================
// Store
// =============================================================================

type partition struct {
	value     any
	hasValue  bool
	updatedAt time.Time
	stale     bool
	fetching  bool
	version   uint64 // bumped by every local write
	observers map[*Observer]struct{}
}

// Store is the single shared mutable resource of a tab session. Values are
// treated as immutable: writers build new values, so a snapshot is a plain
// reference copy.
type Store struct {
	mu       sync.Mutex
	parts    map[Key]*partition
	fetchers map[Kind]Fetcher
	flight   singleflight.Group
	cfg      Config
	now      func() time.Time
	log      zerolog.Logger

	bgCtx    context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// NewStore creates an empty store.
func NewStore(cfg Config, log zerolog.Logger) *Store {
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultConfig().StaleTime
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		parts:    make(map[Key]*partition),
		fetchers: make(map[Kind]Fetcher),
		cfg:      cfg,
		now:      time.Now,
		log:      log.With().Str("component", "cache_store").Logger(),
		bgCtx:    ctx,
		bgCancel: cancel,
	}
}

// Register sets the fetcher for a kind.
func (s *Store) Register(kind Kind, fetcher Fetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchers[kind] = fetcher
}

// Close stops background refetches and waits for running ones.
func (s *Store) Close() {
	s.bgCancel()
	s.wg.Wait()
}

// part returns the partition for key, creating it. Caller holds s.mu.
func (s *Store) part(key Key) *partition {
	p, ok := s.parts[key]
	if !ok {
		p = &partition{observers: make(map[*Observer]struct{})}
		s.parts[key] = p
	}
	return p
}

// =============================================================================
// Reads
// =============================================================================

// Query returns the partition value, fetching it when missing, stale or
// older than StaleTime. Concurrent queries of one key share a single fetch.
// A failed fetch of a partition that already holds a value returns that
// value and leaves the partition stale; only a first load reports the error.
func (s *Store) Query(ctx context.Context, key Key) (any, error) {
	s.mu.Lock()
	if p, ok := s.parts[key]; ok && p.hasValue && !p.stale && s.now().Sub(p.updatedAt) < s.cfg.StaleTime {
		v := p.value
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	return s.fetch(ctx, key)
}

// Peek returns the cached value without fetching.
func (s *Store) Peek(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parts[key]
	if !ok || !p.hasValue {
		return nil, false
	}
	return p.value, true
}

// IsStale reports whether key is marked stale.
func (s *Store) IsStale(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parts[key]
	return ok && p.stale
}

// Keys returns every key of kind holding a value.
func (s *Store) Keys(kind Kind) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked(kind)
}

func (s *Store) keysLocked(kind Kind) []Key {
	var keys []Key
	for k, p := range s.parts {
		if k.Kind == kind && p.hasValue {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Filter < keys[j].Filter })
	return keys
}

// EntryInfo describes one partition for diagnostics.
type EntryInfo struct {
	Key       string    `json:"key"`
	Kind      Kind      `json:"kind"`
	HasValue  bool      `json:"has_value"`
	Stale     bool      `json:"stale"`
	Fetching  bool      `json:"fetching"`
	Observers int       `json:"observers"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entries lists every partition.
func (s *Store) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntryInfo, 0, len(s.parts))
	for k, p := range s.parts {
		out = append(out, EntryInfo{
			Key:       k.String(),
			Kind:      k.Kind,
			HasValue:  p.hasValue,
			Stale:     p.stale,
			Fetching:  p.fetching,
			Observers: len(p.observers),
			UpdatedAt: p.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// =============================================================================
// Fetch
// =============================================================================

func (s *Store) fetch(ctx context.Context, key Key) (any, error) {
	s.mu.Lock()
	fetcher, ok := s.fetchers[key.Kind]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("cache: no fetcher registered for %s", key.Kind)
	}

	v, err, _ := s.flight.Do(key.String(), func() (interface{}, error) {
		s.mu.Lock()
		p := s.part(key)
		p.fetching = true
		version := p.version
		s.mu.Unlock()

		start := s.now()
		value, err := fetcher(ctx, key)
		metrics.ObserveFetch(string(key.Kind), s.now().Sub(start))

		s.mu.Lock()
		defer s.mu.Unlock()
		p.fetching = false
		if err != nil {
			if p.hasValue {
				// 실패한 refetch는 마지막 값을 유지, 다음 Query 때 재시도
				p.stale = true
				s.log.Warn().Err(err).Str("key", key.String()).Msg("refetch failed, serving last known value")
				return p.value, nil
			}
			return nil, err
		}
		if p.version != version {
			// 로컬 낙관적 변경이 fetch 도중 적용됨 → 덮어쓰지 않고 stale 표시
			p.stale = true
			if p.hasValue {
				return p.value, nil
			}
			return value, nil
		}
		p.value = value
		p.hasValue = true
		p.stale = false
		p.updatedAt = s.now()
		s.notifyLocked(p)
		return value, nil
	})
	if err != nil {
		s.log.Debug().Err(err).Str("key", key.String()).Msg("fetch failed")
		return nil, err
	}
	return v, nil
}

// refetch runs a background fetch for an observed partition.
func (s *Store) refetch(key Key) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.bgCtx, s.cfg.FetchTimeout)
		defer cancel()
		if _, err := s.fetch(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key.String()).Msg("background refetch failed")
		}
	}()
}

// =============================================================================
// Writes (optimistic mutation steps)
// =============================================================================

// Snapshot holds the pre-mutation values of a set of partitions.
type Snapshot struct {
	entries map[Key]snapshotEntry
}

type snapshotEntry struct {
	value    any
	hasValue bool
}

// Len returns the number of captured partitions.
func (s Snapshot) Len() int { return len(s.entries) }

// Value returns the captured value of key.
func (s Snapshot) Value(key Key) (any, bool) {
	e, ok := s.entries[key]
	if !ok || !e.hasValue {
		return nil, false
	}
	return e.value, true
}

// Keys returns the captured keys.
func (s Snapshot) Keys() []Key {
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// ApplyFunc computes the new value of a partition. Returning false leaves
// the partition untouched.
type ApplyFunc func(key Key, value any) (any, bool)

// Mutate captures a snapshot of every partition of kinds and applies fn to
// them, atomically.
func (s *Store) Mutate(kinds []Kind, fn ApplyFunc) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{entries: make(map[Key]snapshotEntry)}
	for _, kind := range kinds {
		for _, key := range s.keysLocked(kind) {
			p := s.parts[key]
			snap.entries[key] = snapshotEntry{value: p.value, hasValue: p.hasValue}
		}
	}
	s.applyLocked(kinds, fn)
	return snap
}

// Apply runs fn over every partition of kinds (reconcile step).
func (s *Store) Apply(kinds []Kind, fn ApplyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(kinds, fn)
}

func (s *Store) applyLocked(kinds []Kind, fn ApplyFunc) {
	for _, kind := range kinds {
		for _, key := range s.keysLocked(kind) {
			p := s.parts[key]
			next, changed := fn(key, p.value)
			if !changed {
				continue
			}
			p.value = next
			p.version++
			s.notifyLocked(p)
		}
	}
}

// Restore puts back every partition captured in snap (full replace).
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range snap.entries {
		p := s.part(key)
		p.value = e.value
		p.hasValue = e.hasValue
		p.version++
		s.notifyLocked(p)
	}
}

// =============================================================================
// Invalidation
// =============================================================================

// Invalidate marks every partition of kinds stale. Observed partitions are
// refetched in the background; the rest wait for their next Query.
func (s *Store) Invalidate(kinds ...Kind) {
	s.mu.Lock()
	var refetch []Key
	for _, kind := range kinds {
		for key, p := range s.parts {
			if key.Kind != kind {
				continue
			}
			p.stale = true
			s.notifyLocked(p)
			if len(p.observers) > 0 {
				refetch = append(refetch, key)
			}
		}
		metrics.RecordInvalidation(string(kind))
	}
	s.mu.Unlock()

	for _, key := range refetch {
		s.refetch(key)
	}
}

// InvalidateKeys marks specific partitions stale.
func (s *Store) InvalidateKeys(keys ...Key) {
	s.mu.Lock()
	var refetch []Key
	for _, key := range keys {
		p, ok := s.parts[key]
		if !ok {
			continue
		}
		p.stale = true
		s.notifyLocked(p)
		if len(p.observers) > 0 {
			refetch = append(refetch, key)
		}
	}
	s.mu.Unlock()

	for _, key := range refetch {
		s.refetch(key)
	}
}

// Clear drops every cached value (logout). Observers stay registered.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.parts {
		p.value = nil
		p.hasValue = false
		p.stale = false
		p.version++
		s.notifyLocked(p)
	}
	s.log.Info().Msg("cache cleared")
}

// =============================================================================
// Observers
// =============================================================================

// Observer receives a signal whenever its partition changes or is
// invalidated. Signals coalesce: C holds at most one pending signal.
type Observer struct {
	C     <-chan struct{}
	ch    chan struct{}
	key   Key
	store *Store
	once  sync.Once
}

// Observe registers an observer. While at least one observer exists, the
// partition is refetched as soon as it is invalidated.
func (s *Store) Observe(key Key) *Observer {
	ch := make(chan struct{}, 1)
	o := &Observer{C: ch, ch: ch, key: key, store: s}

	s.mu.Lock()
	s.part(key).observers[o] = struct{}{}
	s.mu.Unlock()
	return o
}

// Key returns the observed key.
func (o *Observer) Key() Key { return o.key }

// Close unregisters the observer. It is idempotent.
func (o *Observer) Close() {
	o.once.Do(func() {
		o.store.mu.Lock()
		if p, ok := o.store.parts[o.key]; ok {
			delete(p.observers, o)
		}
		o.store.mu.Unlock()
	})
}

// notifyLocked signals every observer of p. Caller holds s.mu.
func (s *Store) notifyLocked(p *partition) {
	for o := range p.observers {
		select {
		case o.ch <- struct{}{}:
		default:
		}
	}
}
