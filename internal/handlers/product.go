package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/db"
	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

type ProductHandler struct {
	repo         db.ProductStore
	reorderLevel int
	logger       *zap.Logger
}

// NewProductHandler serves the catalog. reorderLevel seeds the inventory
// record of products created without one.
func NewProductHandler(repo db.ProductStore, reorderLevel int, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		repo:         repo,
		reorderLevel: reorderLevel,
		logger:       logger,
	}
}

func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := middleware.RequireRole(models.RoleAdmin)

	products := rg.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("", admin, h.CreateProduct)
	products.PUT("/:id", admin, h.UpdateProduct)
	products.DELETE("/:id", admin, h.DeleteProduct)
}

// HealthCheck returns server status
func (h *ProductHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "product-service"})
}

// ListProducts returns the catalog. Wholesalers only see active products.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	f := models.ProductFilter{
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		ActiveOnly: c.Query("active") == "true",
	}
	if !middleware.CurrentActor(c).IsAdmin() {
		f.ActiveOnly = true
	}

	products, err := h.repo.GetAll(c.Request.Context(), f)
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct returns a single product
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id := c.Param("id")
	product, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct adds a product together with its empty inventory record
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, err)
		return
	}

	product, err := h.repo.Create(c.Request.Context(), req, h.reorderLevel)
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	h.logger.Info("Product created", zap.String("product_id", product.ID), zap.String("sku", product.SKU))
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct applies a partial update
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.repo.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct deactivates a product
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondStoreError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deactivated"})
}
