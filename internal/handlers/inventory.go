package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/models"
	"github.com/prudhivi99/oil-wholesale/internal/service"
)

type InventoryHandler struct {
	inventory *service.InventoryService
}

func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// RegisterRoutes mounts the admin-only inventory API.
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory", middleware.RequireRole(models.RoleAdmin))
	inv.GET("", h.ListInventory)
	inv.GET("/low-stock", h.LowStock)
	inv.GET("/transactions", h.Transactions)
	inv.GET("/product/:productId", h.GetInventory)
	inv.PUT("/product/:productId/reorder-level", h.UpdateReorderLevel)
	inv.POST("/stock-in", h.StockIn)
	inv.POST("/stock-out", h.StockOut)
	inv.POST("/adjust", h.Adjust)
}

func (h *InventoryHandler) StockIn(c *gin.Context) {
	var cmd service.StockIn
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err)
		return
	}
	cmd.PerformedBy = middleware.CurrentActor(c).ID

	result, err := h.inventory.StockIn(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) StockOut(c *gin.Context) {
	var cmd service.StockOut
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err)
		return
	}
	cmd.PerformedBy = middleware.CurrentActor(c).ID

	result, err := h.inventory.StockOut(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) Adjust(c *gin.Context) {
	var cmd service.AdjustInventory
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err)
		return
	}
	cmd.PerformedBy = middleware.CurrentActor(c).ID

	result, err := h.inventory.AdjustInventory(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *InventoryHandler) UpdateReorderLevel(c *gin.Context) {
	var cmd service.UpdateReorderLevel
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err)
		return
	}
	cmd.ProductID = c.Param("productId")
	cmd.PerformedBy = middleware.CurrentActor(c).ID

	rec, err := h.inventory.UpdateReorderLevel(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *InventoryHandler) GetInventory(c *gin.Context) {
	view, err := h.inventory.GetInventory(c.Request.Context(), c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListInventory supports ?lowStock=true.
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	page, err := h.inventory.ListInventory(c.Request.Context(), models.InventoryFilter{
		LowStockOnly: c.Query("lowStock") == "true",
		Page:         queryInt(c, "page"),
		Limit:        queryInt(c, "limit"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.inventory.ListLowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

func (h *InventoryHandler) Transactions(c *gin.Context) {
	f := models.TransactionFilter{
		ProductID: c.Query("productId"),
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
	}
	if t := c.Query("type"); t != "" {
		typ, err := models.ParseTransactionType(t)
		if err != nil {
			respondError(c, err)
			return
		}
		f.Type = typ
	}
	var err error
	if f.From, err = queryDate(c, "startDate", false); err != nil {
		respondError(c, err)
		return
	}
	if f.To, err = queryDate(c, "endDate", true); err != nil {
		respondError(c, err)
		return
	}

	page, err := h.inventory.ListTransactions(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
