package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faizvk/ecommerce-app/internal/apperrors"
	"github.com/faizvk/ecommerce-app/internal/cache"
	"github.com/faizvk/ecommerce-app/internal/config"
	"github.com/faizvk/ecommerce-app/internal/model"
	q "github.com/faizvk/ecommerce-app/internal/queue"
	"github.com/faizvk/ecommerce-app/internal/service"
	"github.com/faizvk/ecommerce-app/internal/service/servicetest"
)

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:        true,
		TTL:            time.Minute,
		OpTimeout:      200 * time.Millisecond,
		ConnectTimeout: 300 * time.Millisecond,
		RetryAfter:     time.Hour,
	}
}

type catalogFixture struct {
	svc    *service.CatalogService
	store  *servicetest.Products
	facade *cache.Facade
	pub    *servicetest.Publisher
}

func newCatalog(t *testing.T, addr string) catalogFixture {
	t.Helper()
	f := cache.NewFacade(cacheConfig(), &redis.Options{Addr: addr}, nil)
	t.Cleanup(func() { _ = f.Close() })
	fx := catalogFixture{store: servicetest.NewProducts(), facade: f, pub: &servicetest.Publisher{}}
	fx.svc = service.NewCatalogService(fx.store, cache.NewCatalog(f, time.Minute), fx.pub, time.Second, nil)
	return fx
}

func lamp() service.ProductInput {
	return service.ProductInput{
		Name:        "Desk Lamp",
		Description: "warm light",
		Category:    "lighting",
		CostPrice:   decimal.RequireFromString("10.00"),
		SalePrice:   decimal.RequireFromString("15.50"),
		Stock:       3,
	}
}

func TestCatalogReadsHitCacheUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	fx := newCatalog(t, mr.Addr())
	ctx := context.Background()

	p, err := fx.svc.Create(ctx, "seller-1", lamp())
	require.NoError(t, err)

	_, src, err := fx.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, service.SourceDB, src)

	got, src, err := fx.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, service.SourceCache, src)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.SalePrice.Equal(got.SalePrice))

	name := "Floor Lamp"
	_, err = fx.svc.Update(ctx, p.ID, service.ProductPatch{Name: &name})
	require.NoError(t, err)

	got, src, err = fx.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, service.SourceDB, src, "the write orphaned the cached entry")
	assert.Equal(t, "Floor Lamp", got.Name)
}

func TestCatalogListAndSearchCached(t *testing.T) {
	mr := miniredis.RunT(t)
	fx := newCatalog(t, mr.Addr())
	ctx := context.Background()
	_, err := fx.svc.Create(ctx, "s", lamp())
	require.NoError(t, err)

	list, src, err := fx.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.SourceDB, src)
	assert.Len(t, list, 1)

	_, src, err = fx.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.SourceCache, src)

	query := model.ProductQuery{Category: "lighting"}
	page, src, err := fx.svc.Search(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, service.SourceDB, src)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.Page)

	_, src, err = fx.svc.Search(ctx, model.ProductQuery{Category: "lighting", Limit: service.DefaultPageSize})
	require.NoError(t, err)
	assert.Equal(t, service.SourceCache, src, "defaults normalize to the same key")

	reads := fx.store.Reads()
	_, err = fx.svc.Create(ctx, "s", lamp())
	require.NoError(t, err)
	list, src, err = fx.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.SourceDB, src)
	assert.Len(t, list, 2)
	assert.Equal(t, reads+1, fx.store.Reads())
}

func TestCatalogVersionAdvancesOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	fx := newCatalog(t, mr.Addr())
	ctx := context.Background()

	before, ok := fx.facade.Version(ctx, cache.VersionKey)
	require.True(t, ok)
	p, err := fx.svc.Create(ctx, "s", lamp())
	require.NoError(t, err)
	_, err = fx.svc.Delete(ctx, p.ID)
	require.NoError(t, err)
	after, ok := fx.facade.Version(ctx, cache.VersionKey)
	require.True(t, ok)
	assert.Greater(t, after, before)

	events := fx.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, q.ActionCreated, events[0].Action)
	assert.Equal(t, q.ActionDeleted, events[1].Action)
	assert.Equal(t, after, events[1].Version)
}

func TestCatalogWriteInvalidatesAfterCallerHangsUp(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newCatalog(t, mr.Addr())

	// A second instance on the same cache and store.
	peerFacade := cache.NewFacade(cacheConfig(), &redis.Options{Addr: mr.Addr()}, nil)
	t.Cleanup(func() { _ = peerFacade.Close() })
	peer := service.NewCatalogService(a.store, cache.NewCatalog(peerFacade, time.Minute), nil, time.Second, nil)

	p, err := a.svc.Create(context.Background(), "s", lamp())
	require.NoError(t, err)
	_, _, err = peer.List(context.Background())
	require.NoError(t, err)
	_, src, err := peer.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, service.SourceCache, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.store.AfterWrite = cancel
	name := "Renamed"
	_, err = a.svc.Update(ctx, p.ID, service.ProductPatch{Name: &name})
	require.NoError(t, err)
	a.store.AfterWrite = nil

	list, src, err := peer.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, service.SourceDB, src)
	require.Len(t, list, 1)
	assert.Equal(t, "Renamed", list[0].Name)

	events := a.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, q.ActionUpdated, events[1].Action)
	assert.NotZero(t, events[1].Version)
}

func TestCatalogCacheDownServesFromStore(t *testing.T) {
	fx := newCatalog(t, "127.0.0.1:1")
	ctx := context.Background()

	p, err := fx.svc.Create(ctx, "s", lamp())
	require.NoError(t, err, "writes succeed while the cache is down")

	for i := 0; i < 2; i++ {
		_, src, err := fx.svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, service.SourceDB, src)
	}
	_, src, err := fx.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.SourceDB, src)
}

func TestCatalogPublishFailureDoesNotFailWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	fx := newCatalog(t, mr.Addr())
	fx.pub.Err = servicetest.ErrBroker
	var logs bytes.Buffer
	svc := service.NewCatalogService(fx.store, cache.NewCatalog(fx.facade, time.Minute), fx.pub, time.Second,
		slog.New(slog.NewJSONHandler(&logs, nil)))

	_, err := svc.Create(context.Background(), "s", lamp())
	assert.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "product event not published"))
}

func TestCatalogValidation(t *testing.T) {
	mr := miniredis.RunT(t)
	fx := newCatalog(t, mr.Addr())
	ctx := context.Background()

	in := lamp()
	in.SalePrice = decimal.RequireFromString("9.99")
	_, err := fx.svc.Create(ctx, "s", in)
	assert.Equal(t, apperrors.InvalidInput, apperrors.KindOf(err))

	in = lamp()
	in.Stock = -1
	_, err = fx.svc.Create(ctx, "s", in)
	assert.Equal(t, apperrors.InvalidInput, apperrors.KindOf(err))

	in = lamp()
	in.Name = " "
	_, err = fx.svc.Create(ctx, "s", in)
	assert.Equal(t, apperrors.InvalidInput, apperrors.KindOf(err))

	p, err := fx.svc.Create(ctx, "s", lamp())
	require.NoError(t, err)
	cost := decimal.RequireFromString("20")
	_, err = fx.svc.Update(ctx, p.ID, service.ProductPatch{CostPrice: &cost})
	assert.Equal(t, apperrors.InvalidInput, apperrors.KindOf(err), "merged cost exceeds sale")

	_, _, err = fx.svc.Get(ctx, "not-a-uuid")
	assert.Equal(t, apperrors.InvalidInput, apperrors.KindOf(err))

	_, _, err = fx.svc.Get(ctx, uuid.NewString())
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))

	_, err = fx.svc.Delete(ctx, uuid.NewString())
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

func TestNormalizeQuery(t *testing.T) {
	got, err := service.NormalizeQuery(model.ProductQuery{Limit: 500, Order: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, service.MaxPageSize, got.Limit)
	assert.Equal(t, "asc", got.Order)

	_, err = service.NormalizeQuery(model.ProductQuery{SortBy: "cost_price"})
	assert.Equal(t, apperrors.InvalidInput, apperrors.KindOf(err))

	lo, hi := decimal.NewFromInt(50), decimal.NewFromInt(10)
	_, err = service.NormalizeQuery(model.ProductQuery{MinPrice: &lo, MaxPrice: &hi})
	assert.Equal(t, apperrors.InvalidInput, apperrors.KindOf(err))
}
