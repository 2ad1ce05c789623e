package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

type staticResolver struct {
	url string
	err error
}

func (r staticResolver) GetServiceURL(string) (string, error) {
	return r.url, r.err
}

func productServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/products/:id", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer service-token" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authorized, no token"})
			return
		}
		switch c.Param("id") {
		case "prod-1":
			c.JSON(http.StatusOK, models.Product{
				ID: "prod-1", Name: "Sunflower Oil 5L", SKU: "SUN-5L",
				BasePrice: decimal.RequireFromString("12.50"), IsActive: true,
			})
		case "prod-broken":
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func token() (string, error) { return "service-token", nil }

func TestGetProduct(t *testing.T) {
	srv := productServer(t)
	c := NewProductClient(srv.URL, staticResolver{url: srv.URL}, token, zap.NewNop())

	p, err := c.GetProduct(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Name != "Sunflower Oil 5L" || !p.BasePrice.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("unexpected product %+v", p)
	}

	p, err = c.GetProduct(context.Background(), "prod-missing")
	if err != nil || p != nil {
		t.Errorf("expected (nil, nil) for a missing product, got (%v, %v)", p, err)
	}

	if _, err := c.GetProduct(context.Background(), "prod-broken"); err == nil {
		t.Error("expected an error for a 500 response")
	}
}

func TestGetProductFallsBackWhenDiscoveryFails(t *testing.T) {
	srv := productServer(t)
	c := NewProductClient(srv.URL, staticResolver{err: errors.New("no healthy instances")}, token, zap.NewNop())

	p, err := c.GetProduct(context.Background(), "prod-1")
	if err != nil || p == nil {
		t.Fatalf("expected fallback URL to serve the product, got (%v, %v)", p, err)
	}
}

func TestGetProductWithoutToken(t *testing.T) {
	srv := productServer(t)
	c := NewProductClient(srv.URL, nil, nil, zap.NewNop())

	if _, err := c.GetProduct(context.Background(), "prod-1"); err == nil {
		t.Error("expected unauthorized call to fail")
	}
}
