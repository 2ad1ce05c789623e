package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product categories offered by the catalog.
const (
	CategoryVegetableOil = "Vegetable Oil"
	CategorySunflowerOil = "Sunflower Oil"
	CategoryOliveOil     = "Olive Oil"
	CategoryCoconutOil   = "Coconut Oil"
	CategoryPalmOil      = "Palm Oil"
	CategoryMustardOil   = "Mustard Oil"
	CategoryGroundnutOil = "Groundnut Oil"
	CategorySoybeanOil   = "Soybean Oil"
	CategoryOther        = "Other"
)

var productCategories = map[string]bool{
	CategoryVegetableOil: true,
	CategorySunflowerOil: true,
	CategoryOliveOil:     true,
	CategoryCoconutOil:   true,
	CategoryPalmOil:      true,
	CategoryMustardOil:   true,
	CategoryGroundnutOil: true,
	CategorySoybeanOil:   true,
	CategoryOther:        true,
}

var productUnits = map[string]bool{
	"L": true, "mL": true, "kg": true, "g": true, "pcs": true, "bottle": true, "carton": true,
}

type Product struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	SKU           string          `json:"sku" db:"sku"`
	Category      string          `json:"category" db:"category"`
	Description   string          `json:"description" db:"description"`
	BasePrice     decimal.Decimal `json:"base_price" db:"base_price"`
	Unit          string          `json:"unit" db:"unit"`
	Brand         string          `json:"brand" db:"brand"`
	PackagingSize string          `json:"packaging_size" db:"packaging_size"`
	Image         string          `json:"image" db:"image"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

type CreateProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku" binding:"required"`
	Category      string          `json:"category" binding:"required"`
	Description   string          `json:"description"`
	BasePrice     decimal.Decimal `json:"base_price"`
	Unit          string          `json:"unit"`
	Brand         string          `json:"brand"`
	PackagingSize string          `json:"packaging_size"`
	Image         string          `json:"image"`
	ReorderLevel  *int            `json:"reorder_level"`
}

// Validate checks the request against catalog rules.
func (r CreateProductRequest) Validate() error {
	if !productCategories[r.Category] {
		return NewError(ErrValidation, "invalid category %q", r.Category)
	}
	if r.BasePrice.IsNegative() {
		return NewError(ErrValidation, "base price cannot be negative")
	}
	if r.Unit != "" && !productUnits[r.Unit] {
		return NewError(ErrValidation, "invalid unit %q", r.Unit)
	}
	if r.ReorderLevel != nil && *r.ReorderLevel < 0 {
		return NewError(ErrValidation, "reorder level cannot be negative")
	}
	return nil
}

type UpdateProductRequest struct {
	Name          *string          `json:"name"`
	Category      *string          `json:"category"`
	Description   *string          `json:"description"`
	BasePrice     *decimal.Decimal `json:"base_price"`
	Unit          *string          `json:"unit"`
	Brand         *string          `json:"brand"`
	PackagingSize *string          `json:"packaging_size"`
	Image         *string          `json:"image"`
	IsActive      *bool            `json:"is_active"`
}

// Apply returns a copy of p with the request's non-nil fields set.
func (r UpdateProductRequest) Apply(p Product) (Product, error) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Category != nil {
		if !productCategories[*r.Category] {
			return p, NewError(ErrValidation, "invalid category %q", *r.Category)
		}
		p.Category = *r.Category
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.BasePrice != nil {
		if r.BasePrice.IsNegative() {
			return p, NewError(ErrValidation, "base price cannot be negative")
		}
		p.BasePrice = *r.BasePrice
	}
	if r.Unit != nil {
		if !productUnits[*r.Unit] {
			return p, NewError(ErrValidation, "invalid unit %q", *r.Unit)
		}
		p.Unit = *r.Unit
	}
	if r.Brand != nil {
		p.Brand = *r.Brand
	}
	if r.PackagingSize != nil {
		p.PackagingSize = *r.PackagingSize
	}
	if r.Image != nil {
		p.Image = *r.Image
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return p, nil
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
}
