package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

var statusByKind = map[models.ErrorKind]int{
	models.ErrValidation:             http.StatusBadRequest,
	models.ErrInvalidQuantity:        http.StatusBadRequest,
	models.ErrProductInactive:        http.StatusBadRequest,
	models.ErrNoInventory:            http.StatusBadRequest,
	models.ErrProductNotFound:        http.StatusNotFound,
	models.ErrOrderNotFound:          http.StatusNotFound,
	models.ErrInventoryNotFound:      http.StatusNotFound,
	models.ErrNotificationNotFound:   http.StatusNotFound,
	models.ErrInsufficientStock:      http.StatusConflict,
	models.ErrNegativeStock:          http.StatusConflict,
	models.ErrInvalidRelease:         http.StatusConflict,
	models.ErrInvalidConfirm:         http.StatusConflict,
	models.ErrInvalidStateTransition: http.StatusConflict,
	models.ErrForbidden:              http.StatusForbidden,
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := statusByKind[models.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && !models.IsKind(err, models.ErrInternal) {
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// respondStoreError is respondError for handlers that call repositories
// directly, whose infrastructure errors are not yet logged.
func respondStoreError(c *gin.Context, logger *zap.Logger, err error) {
	if StatusFor(err) == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	respondError(c, err)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

// queryDate accepts RFC 3339 or YYYY-MM-DD. A bare date used as an upper
// bound covers the whole day.
func queryDate(c *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, models.NewError(models.ErrValidation, "invalid %s date %q", key, raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
