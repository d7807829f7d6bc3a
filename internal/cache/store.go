package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/i474232898/weather-cache/internal/observability"
)

// Mode reports whether a Store has a working backend.
type Mode string

const (
	ModeActive   Mode = "active"
	ModeDisabled Mode = "disabled"
)

// errNoBackend is reported by Ping for a disabled store.
var errNoBackend = errors.New("cache backend not configured")

// defaultOpTimeout bounds each backend call when Options leaves it unset.
const defaultOpTimeout = 2 * time.Second

// Options configures a Store.
type Options struct {
	Enabled   bool
	OpTimeout time.Duration
}

// Store is the cache-aside adapter used by the rest of the service. Caching
// is an optimization only: every backend failure is logged and degrades to
// a miss or a no-op, never an error for the caller.
type Store struct {
	backend Backend // nil in ModeDisabled
	enabled *atomic.Bool
	timeout time.Duration
	log     *zap.SugaredLogger
	metrics *observability.Metrics
}

// New creates an active Store over backend.
func New(backend Backend, opts Options, log *zap.SugaredLogger, metrics *observability.Metrics) *Store {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	s := &Store{
		backend: backend,
		enabled: atomic.NewBool(opts.Enabled),
		timeout: opts.OpTimeout,
		log:     log,
		metrics: metrics,
	}
	s.reportEnabled(opts.Enabled)
	return s
}

// NewDisabled creates a Store with no backend. Reads always miss and writes
// are dropped regardless of the enable switch. Used when the backend could
// not be constructed at startup.
func NewDisabled(log *zap.SugaredLogger, metrics *observability.Metrics) *Store {
	return New(nil, Options{Enabled: false}, log, metrics)
}

// Mode reports whether the store has a backend.
func (s *Store) Mode() Mode {
	if s.backend == nil {
		return ModeDisabled
	}
	return ModeActive
}

// IsEnabled reports the current state of the enable switch.
func (s *Store) IsEnabled() bool {
	return s.enabled.Load()
}

// SetEnabled flips the enable switch for every subsequent call. Existing
// entries are left in place.
func (s *Store) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
	s.reportEnabled(enabled)
}

func (s *Store) reportEnabled(enabled bool) {
	if enabled && s.backend != nil {
		s.metrics.CacheEnabled.Set(1)
		return
	}
	s.metrics.CacheEnabled.Set(0)
}

func (s *Store) active() bool {
	return s.backend != nil && s.enabled.Load()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Get returns the stored bytes for key, or false on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	category := categoryOf(key)
	if !s.active() {
		s.log.Debugw("Cache bypassed for read", "key", key, "mode", s.Mode())
		s.metrics.CacheLookups.WithLabelValues(category, "bypass").Inc()
		return nil, false
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	val, err := s.backend.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.CacheLookups.WithLabelValues(category, "hit").Inc()
		return val, true
	case errors.Is(err, ErrMiss):
		s.metrics.CacheLookups.WithLabelValues(category, "miss").Inc()
		return nil, false
	default:
		s.log.Warnw("Cache read failed, treating as miss", "key", key, "error", err)
		s.metrics.CacheErrors.WithLabelValues("get").Inc()
		s.metrics.CacheLookups.WithLabelValues(category, "miss").Inc()
		return nil, false
	}
}

// Set stores value under key for ttl. It does nothing when caching is off.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	category := categoryOf(key)
	if !s.active() {
		s.log.Debugw("Cache bypassed for write", "key", key, "mode", s.Mode())
		s.metrics.CacheWrites.WithLabelValues(category, "skipped").Inc()
		return
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		s.log.Warnw("Cache write failed", "key", key, "ttl", ttl, "error", err)
		s.metrics.CacheErrors.WithLabelValues("set").Inc()
		s.metrics.CacheWrites.WithLabelValues(category, "error").Inc()
		return
	}
	s.metrics.CacheWrites.WithLabelValues(category, "stored").Inc()
}

// DeleteByPrefix removes all live keys under prefix and returns how many
// were removed. It returns 0 when caching is off.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) int {
	if !s.active() {
		s.log.Debugw("Cache bypassed for delete", "prefix", prefix, "mode", s.Mode())
		return 0
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.backend.DeleteByPrefix(ctx, prefix)
	if err != nil {
		s.log.Warnw("Cache prefix delete failed", "prefix", prefix, "deleted", n, "error", err)
		s.metrics.CacheErrors.WithLabelValues("delete").Inc()
	}
	return n
}

// Ping checks backend connectivity. It ignores the enable switch.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend == nil {
		return errNoBackend
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.backend.Ping(ctx)
}
