package db

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/cache"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// ProductStore is the catalog persistence behind the cache.
type ProductStore interface {
	GetAll(ctx context.Context, f models.ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, req models.CreateProductRequest, reorderLevel int) (*models.Product, error)
	Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

// CachedProductRepository is a read-through Redis cache over the catalog.
type CachedProductRepository struct {
	repo   ProductStore
	cache  *cache.RedisCache
	logger *zap.Logger
}

func NewCachedProductRepository(repo ProductStore, cache *cache.RedisCache, logger *zap.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func productKey(id string) string {
	return "product:" + id
}

func productListKey(f models.ProductFilter) string {
	return fmt.Sprintf("products:list:%s:%s:%t", f.Category, strings.ToLower(f.Search), f.ActiveOnly)
}

const productListPattern = "products:list:*"

func (r *CachedProductRepository) GetAll(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	key := productListKey(f)

	var products []models.Product
	err := r.cache.Get(ctx, key, &products)
	if err == nil {
		r.logger.Debug("Cache hit", zap.String("key", key))
		return products, nil
	}
	if !cache.IsMiss(err) {
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	products, err = r.repo.GetAll(ctx, f)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, products); err != nil {
		r.logger.Warn("Failed to cache products", zap.Error(err))
	}
	return products, nil
}

func (r *CachedProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	key := productKey(id)

	var product models.Product
	err := r.cache.Get(ctx, key, &product)
	if err == nil {
		r.logger.Debug("Cache hit", zap.String("key", key))
		return &product, nil
	}
	if !cache.IsMiss(err) {
		r.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	p, err := r.repo.GetByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}

	if err := r.cache.Set(ctx, key, p); err != nil {
		r.logger.Warn("Failed to cache product", zap.String("product_id", id), zap.Error(err))
	}
	return p, nil
}

// GetProduct serves order placement lookups.
func (r *CachedProductRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *CachedProductRepository) Create(ctx context.Context, req models.CreateProductRequest, reorderLevel int) (*models.Product, error) {
	product, err := r.repo.Create(ctx, req, reorderLevel)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx)
	return product, nil
}

func (r *CachedProductRepository) Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	product, err := r.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, productKey(id))
	return product, nil
}

func (r *CachedProductRepository) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, productKey(id))
	return nil
}

func (r *CachedProductRepository) invalidate(ctx context.Context, keys ...string) {
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn("Failed to invalidate product cache", zap.Strings("keys", keys), zap.Error(err))
	}
	if err := r.cache.DeleteByPattern(ctx, productListPattern); err != nil {
		r.logger.Warn("Failed to invalidate product lists", zap.Error(err))
	}
}
