package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type probeRequest struct {
	Symbol string `param:"symbol" validate:"required"`
	TF     string `json:"tf" default:"1m" validate:"oneof=1s 1m 5m"`
	N      int    `json:"n" default:"240" validate:"gte=20,lte=5000"`
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/probe/btc", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/probe/:symbol")
	c.SetParamNames("symbol")
	c.SetParamValues("btc")

	var r probeRequest
	if errs := ReadAndValidateRequest(c, &r); errs != nil {
		t.Fatalf("unexpected errors %+v", errs)
	}
	if r.Symbol != "btc" || r.TF != "1m" || r.N != 240 {
		t.Fatalf("unexpected request %+v", r)
	}
}

func TestReadAndValidateRequestRejects(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/probe/btc", strings.NewReader(`{"tf":"1h","n":5}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("symbol")
	c.SetParamValues("btc")

	var r probeRequest
	errs := ReadAndValidateRequest(c, &r)
	if len(errs) != 2 {
		t.Fatalf("expected two errors, got %+v", errs)
	}
	if errs[0].Code != "ERR_ONEOF" || errs[1].Code != "ERR_GTE" {
		t.Fatalf("unexpected codes %+v", errs)
	}
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := fmt.Errorf("lookup: %w", NotFoundErrorf("no levels for %s", "BTC"))
	if rerr := AppErrorResponse(c, err); rerr != nil {
		t.Fatalf("render: %v", rerr)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != 404 || len(body.Data) != 1 || body.Data[0].Code != "ERR_NOT_FOUND" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAppErrorResponseUnknownError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = AppErrorResponse(c, errors.New("db down"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("internal error text leaked: %s", rec.Body.String())
	}
}
