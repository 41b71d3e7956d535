// Package dashboard aggregates the numbers the terminal home screen
// shows: sales totals by window, stock health, and best sellers.
// Results are cached in Redis and builds deduplicated with
// singleflight so a floor of busy terminals never stampedes Postgres.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/sari-pos/sari-pos/internal/catalog"
	"github.com/sari-pos/sari-pos/internal/sales"
)

const (
	cacheKey  = "dashboard:stats"
	cacheTTL  = 30 * time.Second
	topNLimit = 5
)

// Stats is the dashboard payload.
type Stats struct {
	Sales struct {
		Today float64 `json:"today"`
		Week  float64 `json:"week"`
		Month float64 `json:"month"`
	} `json:"sales"`
	Inventory   catalog.StockCounts `json:"inventory"`
	BestSellers []sales.BestSeller  `json:"best_sellers"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// SalesPort supplies sale aggregates.
type SalesPort interface {
	TotalsSince(ctx context.Context, since time.Time) (float64, error)
	BestSellers(ctx context.Context, since time.Time, limit int) ([]sales.BestSeller, error)
}

// CatalogPort supplies stock health numbers.
type CatalogPort interface {
	Counts(ctx context.Context) (catalog.StockCounts, error)
}

// Service builds and caches dashboard stats.
type Service struct {
	sales   SalesPort
	catalog CatalogPort
	cache   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// NewService constructs the dashboard service. A nil cache disables
// caching; a non-positive ttl falls back to the default.
func NewService(salesPort SalesPort, catalogPort CatalogPort, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = cacheTTL
	}
	return &Service{sales: salesPort, catalog: catalogPort, cache: cache, ttl: ttl, now: time.Now}
}

// Stats returns the current dashboard numbers, served from cache when
// fresh.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached Stats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	value, err, _ := s.group.Do(cacheKey, func() (any, error) {
		return s.build(ctx)
	})
	if err != nil {
		return nil, err
	}
	stats := value.(*Stats)

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(ctx, cacheKey, raw, s.ttl).Err()
		}
	}
	return stats, nil
}

// Invalidate drops the cached stats, used after bulk changes.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey).Err()
}

func (s *Service) build(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := today.AddDate(0, 0, -7)
	monthAgo := today.AddDate(0, 0, -30)

	var stats Stats
	var err error
	if stats.Sales.Today, err = s.sales.TotalsSince(ctx, today); err != nil {
		return nil, err
	}
	if stats.Sales.Week, err = s.sales.TotalsSince(ctx, weekAgo); err != nil {
		return nil, err
	}
	if stats.Sales.Month, err = s.sales.TotalsSince(ctx, monthAgo); err != nil {
		return nil, err
	}
	if stats.Inventory, err = s.catalog.Counts(ctx); err != nil {
		return nil, err
	}
	if stats.BestSellers, err = s.sales.BestSellers(ctx, monthAgo, topNLimit); err != nil {
		return nil, err
	}
	stats.GeneratedAt = now
	return &stats, nil
}
