package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

const productServiceName = "product-service"

// Resolver finds the base URL of a healthy service instance.
type Resolver interface {
	GetServiceURL(serviceName string) (string, error)
}

// TokenSource returns the bearer token sent with each call.
type TokenSource func() (string, error)

// ProductClient reads the catalog from product-service.
type ProductClient struct {
	fallbackURL string
	resolver    Resolver
	token       TokenSource
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewProductClient resolves product-service through resolver when it is
// non-nil and falls back to fallbackURL.
func NewProductClient(fallbackURL string, resolver Resolver, token TokenSource, logger *zap.Logger) *ProductClient {
	return &ProductClient{
		fallbackURL: fallbackURL,
		resolver:    resolver,
		token:       token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *ProductClient) baseURL() string {
	if c.resolver == nil {
		return c.fallbackURL
	}
	u, err := c.resolver.GetServiceURL(productServiceName)
	if err != nil {
		c.logger.Debug("Using fallback product-service URL", zap.String("url", c.fallbackURL), zap.Error(err))
		return c.fallbackURL
	}
	return u
}

// GetProduct fetches a product. A missing product is (nil, nil).
func (c *ProductClient) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	endpoint := fmt.Sprintf("%s/products/%s", c.baseURL(), url.PathEscape(productID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build product request: %w", err)
	}
	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return nil, fmt.Errorf("failed to sign service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call product service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("product service returned status %d", resp.StatusCode)
	}

	var product models.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &product, nil
}
