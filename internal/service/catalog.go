package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/faizvk/ecommerce-app/internal/apperrors"
	"github.com/faizvk/ecommerce-app/internal/cache"
	"github.com/faizvk/ecommerce-app/internal/model"
	q "github.com/faizvk/ecommerce-app/internal/queue"
	"github.com/faizvk/ecommerce-app/internal/repository"
)

// ProductStore is the primary store for catalog items.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	Search(ctx context.Context, query model.ProductQuery) ([]model.Product, int, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) (*model.Product, error)
}

// EventPublisher receives catalog change notifications.
type EventPublisher interface {
	PublishProductChanged(ctx context.Context, ev q.ProductChangedEvent) error
}

// Source tells where a read was served from.
type Source string

const (
	SourceCache Source = "cache"
	SourceDB    Source = "db"
)

// Search paging limits.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// ProductInput is a new catalog item.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	CostPrice   decimal.Decimal
	SalePrice   decimal.Decimal
	Stock       int
	Images      []string
}

// ProductPatch carries the fields of an update; nil fields are unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	CostPrice   *decimal.Decimal
	SalePrice   *decimal.Decimal
	Stock       *int
	Images      []string
}

// CatalogService serves catalog reads through the versioned cache and
// invalidates it after every committed write.  Cache trouble never turns a
// read into an error.
type CatalogService struct {
	store   ProductStore
	cache   *cache.Catalog
	events  EventPublisher
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// NewCatalogService wires the service.  events may be nil.
func NewCatalogService(store ProductStore, c *cache.Catalog, events EventPublisher, timeout time.Duration, logger *slog.Logger) *CatalogService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		store:   store,
		cache:   c,
		events:  events,
		timeout: timeout,
		log:     logger.With(slog.String("component", "catalog")),
		now:     time.Now,
	}
}

func (s *CatalogService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func productErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return apperrors.NewNotFound("product not found")
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict("product already exists")
	default:
		return apperrors.NewInternal(err)
	}
}

func validID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return apperrors.NewInvalidInput("invalid product ID")
	}
	return nil
}

// List returns the whole catalog.
func (s *CatalogService) List(ctx context.Context) ([]model.Product, Source, error) {
	var products []model.Product
	slot, hit := s.cache.Lookup(ctx, cache.ListKey(), &products)
	if hit {
		return products, SourceCache, nil
	}
	dbctx, cancel := s.bound(ctx)
	defer cancel()
	products, err := s.store.ListAll(dbctx)
	if err != nil {
		return nil, "", apperrors.NewInternal(err)
	}
	if products == nil {
		products = []model.Product{}
	}
	s.cache.Store(ctx, slot, products)
	return products, SourceDB, nil
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id string) (*model.Product, Source, error) {
	if err := validID(id); err != nil {
		return nil, "", err
	}
	var p model.Product
	slot, hit := s.cache.Lookup(ctx, cache.ItemKey(id), &p)
	if hit {
		return &p, SourceCache, nil
	}
	dbctx, cancel := s.bound(ctx)
	defer cancel()
	found, err := s.store.GetByID(dbctx, id)
	if err != nil {
		return nil, "", productErr(err)
	}
	s.cache.Store(ctx, slot, found)
	return found, SourceDB, nil
}

// NormalizeQuery applies paging defaults and rejects inconsistent filters.
func NormalizeQuery(query model.ProductQuery) (model.ProductQuery, error) {
	query.Name = strings.TrimSpace(query.Name)
	query.Category = strings.TrimSpace(query.Category)
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = DefaultPageSize
	}
	if query.Limit > MaxPageSize {
		query.Limit = MaxPageSize
	}
	switch query.SortBy {
	case "", "createdAt", "salePrice", "name":
	default:
		return query, apperrors.NewInvalidInput("invalid sortBy")
	}
	query.Order = strings.ToLower(query.Order)
	switch query.Order {
	case "", "asc", "desc":
	default:
		return query, apperrors.NewInvalidInput("invalid order")
	}
	if query.MinPrice != nil && query.MaxPrice != nil && query.MinPrice.GreaterThan(*query.MaxPrice) {
		return query, apperrors.NewInvalidInput("minPrice must not exceed maxPrice")
	}
	return query, nil
}

// Search returns one page of matching products.
func (s *CatalogService) Search(ctx context.Context, query model.ProductQuery) (*model.ProductPage, Source, error) {
	query, err := NormalizeQuery(query)
	if err != nil {
		return nil, "", err
	}
	var page model.ProductPage
	slot, hit := s.cache.Lookup(ctx, cache.SearchKey(query.Values()), &page)
	if hit {
		return &page, SourceCache, nil
	}
	dbctx, cancel := s.bound(ctx)
	defer cancel()
	products, total, err := s.store.Search(dbctx, query)
	if err != nil {
		return nil, "", apperrors.NewInternal(err)
	}
	if products == nil {
		products = []model.Product{}
	}
	page = model.ProductPage{
		Products:   products,
		TotalCount: total,
		TotalPages: (total + query.Limit - 1) / query.Limit,
		Page:       query.Page,
	}
	s.cache.Store(ctx, slot, page)
	return &page, SourceDB, nil
}

func checkProduct(p *model.Product) error {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Description) == "" || strings.TrimSpace(p.Category) == "" {
		return apperrors.NewInvalidInput("name, description and category are required")
	}
	if !p.CostPrice.IsPositive() || !p.SalePrice.IsPositive() {
		return apperrors.NewInvalidInput("cost price and sale price must be greater than 0")
	}
	if p.SalePrice.LessThan(p.CostPrice) {
		return apperrors.NewInvalidInput("sale price must be greater than or equal to cost price")
	}
	if p.Stock < 0 {
		return apperrors.NewInvalidInput("stock cannot be negative")
	}
	return nil
}

// Create adds a product owned by sellerID.
func (s *CatalogService) Create(ctx context.Context, sellerID string, in ProductInput) (*model.Product, error) {
	p := &model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		CostPrice:   in.CostPrice,
		SalePrice:   in.SalePrice,
		Stock:       in.Stock,
		Images:      in.Images,
		SellerID:    sellerID,
	}
	if err := checkProduct(p); err != nil {
		return nil, err
	}
	dbctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.store.Create(dbctx, p); err != nil {
		return nil, productErr(err)
	}
	s.changed(ctx, q.ActionCreated, p)
	return p, nil
}

// Update applies patch to product id.
func (s *CatalogService) Update(ctx context.Context, id string, patch ProductPatch) (*model.Product, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	dbctx, cancel := s.bound(ctx)
	defer cancel()
	p, err := s.store.GetByID(dbctx, id)
	if err != nil {
		return nil, productErr(err)
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.CostPrice != nil {
		p.CostPrice = *patch.CostPrice
	}
	if patch.SalePrice != nil {
		p.SalePrice = *patch.SalePrice
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Images != nil {
		p.Images = patch.Images
	}
	if err := checkProduct(p); err != nil {
		return nil, err
	}
	if err := s.store.Update(dbctx, p); err != nil {
		return nil, productErr(err)
	}
	s.changed(ctx, q.ActionUpdated, p)
	return p, nil
}

// Delete removes product id and returns it.
func (s *CatalogService) Delete(ctx context.Context, id string) (*model.Product, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	dbctx, cancel := s.bound(ctx)
	defer cancel()
	p, err := s.store.Delete(dbctx, id)
	if err != nil {
		return nil, productErr(err)
	}
	s.changed(ctx, q.ActionDeleted, p)
	return p, nil
}

// changed runs after a committed write: bump the catalog version, then
// notify subscribers.  Neither step can fail the write.
func (s *CatalogService) changed(ctx context.Context, action string, p *model.Product) {
	// The write has committed; a caller that hangs up now must not cost the
	// other instances their invalidation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	version, ok := s.cache.Invalidate(ctx)
	if !ok {
		s.log.Warn("catalog invalidation deferred, cache unavailable", slog.String("product_id", p.ID))
	}
	if s.events == nil {
		return
	}
	ev := q.ProductChangedEvent{
		Action:    action,
		ProductID: p.ID,
		Name:      p.Name,
		SellerID:  p.SellerID,
		Version:   version,
		At:        s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishProductChanged(ctx, ev); err != nil {
		s.log.Warn("product event not published", slog.String("product_id", p.ID),
			slog.String("action", action), slog.String("error", err.Error()))
	}
}
