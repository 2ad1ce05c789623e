package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/models"
	"github.com/prudhivi99/oil-wholesale/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// RegisterRoutes mounts the order API on an authenticated group.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := middleware.RequireRole(models.RoleAdmin)
	wholesaler := middleware.RequireRole(models.RoleWholesaler)

	orders := rg.Group("/orders")
	orders.POST("", wholesaler, h.CreateOrder)
	orders.GET("", admin, h.ListOrders)
	orders.GET("/my", wholesaler, h.MyOrders)
	orders.GET("/pending", admin, h.PendingOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PUT("/:id/approve", admin, h.ApproveOrder)
	orders.PUT("/:id/reject", admin, h.RejectOrder)
	orders.PUT("/:id/cancel", h.CancelOrder)
	orders.PUT("/:id/status", admin, h.UpdateOrderStatus)
}

// HealthCheck returns server status
func (h *OrderHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "order-service"})
}

// CreateOrder places an order for the calling wholesaler
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var cmd service.PlaceOrder
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err)
		return
	}
	actor := middleware.CurrentActor(c)
	cmd.WholesalerID = actor.ID
	cmd.WholesalerName = middleware.CurrentUserName(c)

	order, err := h.orders.PlaceOrder(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ListOrders returns all orders matching the query filters
func (h *OrderHandler) ListOrders(c *gin.Context) {
	f, err := orderFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f.WholesalerID = c.Query("wholesaler")
	h.list(c, f)
}

// MyOrders returns the caller's own orders
func (h *OrderHandler) MyOrders(c *gin.Context) {
	f, err := orderFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	f.WholesalerID = middleware.CurrentActor(c).ID
	h.list(c, f)
}

func (h *OrderHandler) PendingOrders(c *gin.Context) {
	page, err := h.orders.ListPendingOrders(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *OrderHandler) list(c *gin.Context, f models.OrderFilter) {
	page, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func orderFilter(c *gin.Context) (models.OrderFilter, error) {
	f := models.OrderFilter{Page: queryInt(c, "page"), Limit: queryInt(c, "limit")}
	if s := c.Query("status"); s != "" {
		status, err := models.ParseOrderStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	var err error
	if f.From, err = queryDate(c, "startDate", false); err != nil {
		return f, err
	}
	if f.To, err = queryDate(c, "endDate", true); err != nil {
		return f, err
	}
	return f, nil
}

// GetOrder returns a single order with items
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"), middleware.CurrentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	order, err := h.orders.ApproveOrder(c.Request.Context(), service.ApproveOrder{
		OrderID: c.Param("id"),
		AdminID: middleware.CurrentActor(c).ID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) RejectOrder(c *gin.Context) {
	var cmd service.RejectOrder
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err)
		return
	}
	cmd.OrderID = c.Param("id")
	cmd.AdminID = middleware.CurrentActor(c).ID

	order, err := h.orders.RejectOrder(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder is open to admins and to the wholesaler owning the order.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var cmd service.CancelOrder
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd.OrderID = c.Param("id")
	cmd.Actor = middleware.CurrentActor(c)

	order, err := h.orders.CancelOrder(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus advances an approved order through fulfilment
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	var cmd service.UpdateOrderStatus
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, err)
		return
	}
	cmd.OrderID = c.Param("id")

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
