package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nckexchange/exchange/internal/auth"
)

type routesHandler struct{}

func (routesHandler) Register(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/admin/messages", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
}

func serve(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(slog.Default(), ":0", "test-secret-key", routesHandler{})
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestPublicPathsSkipJWT(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/ping: expected 200, got %d", rec.Code)
	}
}

func TestAdminPathsRequireJWT(t *testing.T) {
	rec := serve(t, httptest.NewRequest(http.MethodGet, "/admin/messages", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	svc, err := auth.NewService(nil, "admin", "swordfish-42", "test-secret-key", time.Hour)
	if err != nil {
		t.Fatalf("auth.NewService returned error: %v", err)
	}
	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/messages", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if rec := serve(t, req); rec.Code != http.StatusOK {
		t.Errorf("with token: expected 200, got %d", rec.Code)
	}
}
