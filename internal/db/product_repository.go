package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

const productColumns = `
	id, name, sku, category, description, base_price, unit, brand,
	packaging_size, image, is_active, created_at, updated_at`

type ProductRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewProductRepository(database *PostgresDB) *ProductRepository {
	return &ProductRepository{db: database.Conn, now: time.Now}
}

// GetAll returns products matching the filter ordered by name
func (r *ProductRepository) GetAll(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	var conditions []string
	var args []interface{}

	if f.Category != "" {
		args = append(args, f.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d OR brand ILIKE $%d)", len(args), len(args), len(args)))
	}
	if f.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name"

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	return products, nil
}

// GetByID returns a single product, or nil if it does not exist
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.db.GetContext(ctx, &p, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// Create inserts a product together with its empty inventory record
func (r *ProductRepository) Create(ctx context.Context, req models.CreateProductRequest, reorderLevel int) (*models.Product, error) {
	now := r.now()
	p := models.Product{
		ID:            uuid.New().String(),
		Name:          req.Name,
		SKU:           strings.ToUpper(strings.TrimSpace(req.SKU)),
		Category:      req.Category,
		Description:   req.Description,
		BasePrice:     req.BasePrice,
		Unit:          req.Unit,
		Brand:         req.Brand,
		PackagingSize: req.PackagingSize,
		Image:         req.Image,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Unit == "" {
		p.Unit = "L"
	}
	if req.ReorderLevel != nil {
		reorderLevel = *req.ReorderLevel
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO products (` + productColumns + `) VALUES (
		:id, :name, :sku, :category, :description, :base_price, :unit, :brand,
		:packaging_size, :image, :is_active, :created_at, :updated_at
	)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		if isUniqueViolation(err) {
			return nil, models.NewError(models.ErrValidation, "product with SKU %s already exists", p.SKU)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if err := insertInventory(ctx, tx, models.NewInventoryRecord(p.ID, reorderLevel, now)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &p, nil
}

// GetProduct serves order placement lookups.
func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return r.GetByID(ctx, id)
}

// Update applies a partial update
func (r *ProductRepository) Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, models.NewError(models.ErrProductNotFound, "product %s not found", id)
	}

	p, err := req.Apply(*current)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = r.now()

	query := `
		UPDATE products SET
			name = :name, category = :category, description = :description,
			base_price = :base_price, unit = :unit, brand = :brand,
			packaging_size = :packaging_size, image = :image,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &p, nil
}

// Delete deactivates a product. Products referenced by orders and the
// transaction log are never removed.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE products SET is_active = FALSE, updated_at = $1 WHERE id = $2", r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return models.NewError(models.ErrProductNotFound, "product %s not found", id)
	}
	return nil
}
