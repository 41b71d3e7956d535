package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sari-pos/sari-pos/internal/catalog"
	"github.com/sari-pos/sari-pos/internal/sales"
)

type stubSales struct {
	totals map[time.Time]float64
	best   []sales.BestSeller
	calls  int
}

func (s *stubSales) TotalsSince(ctx context.Context, since time.Time) (float64, error) {
	s.calls++
	return s.totals[since], nil
}

func (s *stubSales) BestSellers(ctx context.Context, since time.Time, limit int) ([]sales.BestSeller, error) {
	if limit < len(s.best) {
		return s.best[:limit], nil
	}
	return s.best, nil
}

type stubCatalog struct {
	counts catalog.StockCounts
}

func (s *stubCatalog) Counts(ctx context.Context) (catalog.StockCounts, error) {
	return s.counts, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, withCache bool) (*Service, *stubSales, *miniredis.Miniredis) {
	t.Helper()
	today := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	salesPort := &stubSales{
		totals: map[time.Time]float64{
			today:                    1520.50,
			today.AddDate(0, 0, -7):  9800.00,
			today.AddDate(0, 0, -30): 41250.75,
		},
		best: []sales.BestSeller{
			{ProductID: 10, ProductName: "Canned Sardines", TotalSold: 120, TotalRevenue: 3060},
		},
	}
	catalogPort := &stubCatalog{counts: catalog.StockCounts{TotalProducts: 42, LowStock: 3, OutOfStock: 1}}

	var client *redis.Client
	var mr *miniredis.Miniredis
	if withCache {
		mr = miniredis.RunT(t)
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
	}
	svc := NewService(salesPort, catalogPort, client, 30*time.Second)
	svc.now = fixedNow
	return svc, salesPort, mr
}

func TestStatsBuildsAllWindows(t *testing.T) {
	svc, _, _ := newTestService(t, false)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1520.50, stats.Sales.Today, 0.0001)
	assert.InDelta(t, 9800.00, stats.Sales.Week, 0.0001)
	assert.InDelta(t, 41250.75, stats.Sales.Month, 0.0001)
	assert.Equal(t, 42, stats.Inventory.TotalProducts)
	assert.Equal(t, 3, stats.Inventory.LowStock)
	require.Len(t, stats.BestSellers, 1)
	assert.Equal(t, "Canned Sardines", stats.BestSellers[0].ProductName)
	assert.Equal(t, fixedNow(), stats.GeneratedAt)
}

func TestStatsServedFromCache(t *testing.T) {
	svc, salesPort, _ := newTestService(t, true)
	ctx := context.Background()

	first, err := svc.Stats(ctx)
	require.NoError(t, err)
	callsAfterBuild := salesPort.calls

	second, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, callsAfterBuild, salesPort.calls)
	assert.InDelta(t, first.Sales.Today, second.Sales.Today, 0.0001)
}

func TestStatsRebuildsAfterTTL(t *testing.T) {
	svc, salesPort, mr := newTestService(t, true)
	ctx := context.Background()

	_, err := svc.Stats(ctx)
	require.NoError(t, err)
	callsAfterBuild := salesPort.calls

	mr.FastForward(31 * time.Second)

	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Greater(t, salesPort.calls, callsAfterBuild)
}

func TestInvalidateDropsCache(t *testing.T) {
	svc, salesPort, _ := newTestService(t, true)
	ctx := context.Background()

	_, err := svc.Stats(ctx)
	require.NoError(t, err)
	callsAfterBuild := salesPort.calls

	require.NoError(t, svc.Invalidate(ctx))

	_, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Greater(t, salesPort.calls, callsAfterBuild)
}

func TestInvalidateWithoutCache(t *testing.T) {
	svc, _, _ := newTestService(t, false)
	require.NoError(t, svc.Invalidate(context.Background()))
}
