package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/i474232898/weather-cache/internal/observability"
)

// ClearResult reports how many entries a bulk invalidation removed.
type ClearResult struct {
	Cleared int `json:"cleared"`
}

// Status summarizes the cache for operators.
type Status struct {
	Enabled bool   `json:"enabled"`
	Mode    Mode   `json:"mode"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Admin exposes the operational controls of a Store.
type Admin struct {
	store   *Store
	log     *zap.SugaredLogger
	metrics *observability.Metrics
}

// NewAdmin creates an Admin over store.
func NewAdmin(store *Store, log *zap.SugaredLogger, metrics *observability.Metrics) *Admin {
	return &Admin{
		store:   store,
		log:     log,
		metrics: metrics,
	}
}

// SetCacheEnabled applies the switch and echoes the applied state.
func (a *Admin) SetCacheEnabled(enabled bool) bool {
	a.store.SetEnabled(enabled)
	a.log.Infow("Cache switch updated", "enabled", enabled, "mode", a.store.Mode())
	return a.store.IsEnabled()
}

// ClearCategory removes every entry of one category and leaves the other alone.
func (a *Admin) ClearCategory(ctx context.Context, category Category) ClearResult {
	n := a.store.DeleteByPrefix(ctx, category.Prefix())
	a.metrics.CacheCleared.WithLabelValues(string(category)).Add(float64(n))
	a.log.Infow("Cache category cleared", "category", category, "cleared", n)
	return ClearResult{Cleared: n}
}

// Status reports the switch, the store mode and backend health.
func (a *Admin) Status(ctx context.Context) Status {
	st := Status{
		Enabled: a.store.IsEnabled(),
		Mode:    a.store.Mode(),
		Healthy: true,
	}
	if err := a.store.Ping(ctx); err != nil {
		st.Healthy = false
		st.Error = err.Error()
	}
	return st
}
