package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/middleware"
	"github.com/prudhivi99/oil-wholesale/internal/models"
	"github.com/prudhivi99/oil-wholesale/internal/testutil"
)

func setupRouter() *gin.Engine {
	r := testutil.SetupRouter()
	r.Use(middleware.RequestID(), middleware.Logger(zap.NewNop()))
	api := testutil.AuthGroup(r, "/api")
	api.GET("/me", func(c *gin.Context) {
		actor := middleware.CurrentActor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role, "name": middleware.CurrentUserName(c)})
	})
	api.GET("/admin", middleware.RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	r := setupRouter()

	w := testutil.DoRequest(r, http.MethodGet, "/api/me", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodGet, "/api/me", nil, "garbage")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodGet, "/api/me", nil, testutil.WholesalerToken("ws-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["id"] != "ws-1" || resp["role"] != "wholesaler" || resp["name"] != "Acme Foods" {
		t.Errorf("unexpected actor %v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected request id header")
	}
}

func TestJWTAuthRejectsExpiredAndForeignTokens(t *testing.T) {
	r := setupRouter()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": "ws-1", "role": "wholesaler", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	token, _ := expired.SignedString([]byte(testutil.JWTSecret))
	if w := testutil.DoRequest(r, http.MethodGet, "/api/me", nil, token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", w.Code)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"uid": "ws-1", "role": "admin"})
	token, _ = foreign.SignedString([]byte("some-other-secret"))
	if w := testutil.DoRequest(r, http.MethodGet, "/api/me", nil, token); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for token signed with another key, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	r := setupRouter()

	if w := testutil.DoRequest(r, http.MethodGet, "/api/admin", nil, testutil.WholesalerToken("ws-1")); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for wholesaler, got %d", w.Code)
	}
	if w := testutil.DoRequest(r, http.MethodGet, "/api/admin", nil, testutil.AdminToken()); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for admin, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := testutil.SetupRouter()
	r.Use(middleware.CORS())
	r.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutil.DoRequest(r, http.MethodOptions, "/orders", nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing allow-origin header")
	}
}
