package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ChartMarks/pkg/logger"

	"github.com/labstack/echo/v4"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
}

func TestServerRoutes(t *testing.T) {
	s := NewServer(logger.Nop(), []Handler{pingHandler{}, nil}, WithMetricsPath("/metrics"))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rec.Code)
	}
}

func TestServerCORSToggle(t *testing.T) {
	preflight := func(s *Server) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set(echo.HeaderOrigin, "http://chart.local")
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		return rec
	}

	on := preflight(NewServer(logger.Nop(), []Handler{pingHandler{}}, WithMetricsPath("")))
	if on.Header().Get(echo.HeaderAccessControlAllowOrigin) == "" {
		t.Fatalf("expected CORS headers when enabled")
	}

	off := preflight(NewServer(logger.Nop(), []Handler{pingHandler{}}, WithMetricsPath(""), WithCORS(false)))
	if off.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("expected no CORS headers when disabled")
	}
}
