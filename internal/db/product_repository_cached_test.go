package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/cache"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

type countingProductStore struct {
	products map[string]models.Product
	gets     int
	lists    int
}

func (s *countingProductStore) GetAll(_ context.Context, _ models.ProductFilter) ([]models.Product, error) {
	s.lists++
	out := []models.Product{}
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *countingProductStore) GetByID(_ context.Context, id string) (*models.Product, error) {
	s.gets++
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *countingProductStore) Create(_ context.Context, req models.CreateProductRequest, _ int) (*models.Product, error) {
	p := models.Product{ID: "prod-new", Name: req.Name, SKU: req.SKU, IsActive: true}
	s.products[p.ID] = p
	return &p, nil
}

func (s *countingProductStore) Update(_ context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	p, err := req.Apply(s.products[id])
	if err != nil {
		return nil, err
	}
	s.products[id] = p
	return &p, nil
}

func (s *countingProductStore) Delete(_ context.Context, id string) error {
	p := s.products[id]
	p.IsActive = false
	s.products[id] = p
	return nil
}

func setupCachedRepo(t *testing.T) (*CachedProductRepository, *countingProductStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &countingProductStore{products: map[string]models.Product{
		"prod-1": {ID: "prod-1", Name: "Coconut Oil 500mL", SKU: "COC-500", BasePrice: decimal.RequireFromString("3.20"), IsActive: true},
	}}
	repo := NewCachedProductRepository(store, cache.NewRedisCacheWithClient(client, time.Minute), zap.NewNop())
	return repo, store, mr
}

func TestCachedProductReadThrough(t *testing.T) {
	repo, store, mr := setupCachedRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := repo.GetProduct(ctx, "prod-1")
		if err != nil {
			t.Fatalf("GetProduct: %v", err)
		}
		if p.SKU != "COC-500" || !p.BasePrice.Equal(decimal.RequireFromString("3.20")) {
			t.Fatalf("unexpected product %+v", p)
		}
	}
	if store.gets != 1 {
		t.Errorf("expected 1 database read, got %d", store.gets)
	}
	if !mr.Exists("product:prod-1") {
		t.Errorf("expected product to be cached")
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing product; got %v, %v", missing, err)
	}
	if mr.Exists("product:nope") {
		t.Errorf("missing products must not be cached")
	}
}

func TestCachedProductInvalidation(t *testing.T) {
	repo, store, mr := setupCachedRepo(t)
	ctx := context.Background()

	if _, err := repo.GetAll(ctx, models.ProductFilter{ActiveOnly: true}); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if _, err := repo.GetAll(ctx, models.ProductFilter{ActiveOnly: true}); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if store.lists != 1 {
		t.Fatalf("expected cached listing, got %d reads", store.lists)
	}
	if _, err := repo.GetByID(ctx, "prod-1"); err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	name := "Virgin Coconut Oil 500mL"
	if _, err := repo.Update(ctx, "prod-1", models.UpdateProductRequest{Name: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if mr.Exists("product:prod-1") || len(mr.Keys()) != 0 {
		t.Errorf("expected cache cleared, keys left: %v", mr.Keys())
	}

	p, err := repo.GetByID(ctx, "prod-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Name != name {
		t.Errorf("expected fresh name, got %s", p.Name)
	}
}
