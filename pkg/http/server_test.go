package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	e.GET("/missing", func(c echo.Context) error { return AppErrorResponse(c, NotFoundErrorf("actor %s not found", "x")) })
}

func do(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s: decode body %q: %v", path, rec.Body.String(), err)
	}
	return rec, body
}

func TestServer_Routes(t *testing.T) {
	s := NewServer(nil, []Handler{pingHandler{}})

	rec, body := do(t, s, "/ping")
	if rec.Code != http.StatusOK || body.Data != "pong" {
		t.Fatalf("/ping = %d %+v", rec.Code, body)
	}
	rec, body = do(t, s, "/missing")
	if rec.Code != http.StatusNotFound || body.Status != http.StatusNotFound {
		t.Fatalf("/missing = %d %+v", rec.Code, body)
	}
	rec, _ = do(t, s, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", rec.Code)
	}
	rec, _ = do(t, s, "/boom")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic route = %d", rec.Code)
	}
}

func TestServer_Health(t *testing.T) {
	healthy := NewServer(nil, nil)
	if rec, _ := do(t, healthy, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	sick := NewServer(nil, nil, WithHealth(func(context.Context) error { return errors.New("redis down") }))
	rec, body := do(t, sick, "/health")
	if rec.Code != http.StatusServiceUnavailable || body.Data != "redis down" {
		t.Fatalf("unhealthy = %d %+v", rec.Code, body)
	}
}

func TestAppErrorResponse_HidesInternal(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := AppErrorResponse(c, errors.New("db password leaked")); err != nil {
		t.Fatalf("AppErrorResponse: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Data != "Something went wrong" {
		t.Fatalf("internal error leaked: %+v", body)
	}
}

type listReq struct {
	Pattern string `query:"pattern" validate:"omitempty,oneof=a b"`
	Limit   int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()
	newCtx := func(q string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q, nil), httptest.NewRecorder())
	}

	var ok listReq
	if errs := ReadAndValidateRequest(newCtx("pattern=a"), &ok); errs != nil {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if ok.Limit != 100 {
		t.Fatalf("default limit not applied: %d", ok.Limit)
	}

	var bad listReq
	errs := ReadAndValidateRequest(newCtx("pattern=c&limit=5000"), &bad)
	if len(errs) != 2 {
		t.Fatalf("want 2 errors, got %+v", errs)
	}
	for _, ve := range errs {
		if ve.Code != "ERR_ONEOF" && ve.Code != "ERR_LTE" {
			t.Fatalf("unexpected code %s", ve.Code)
		}
	}

	var garbage listReq
	if errs := ReadAndValidateRequest(newCtx("limit=abc"), &garbage); len(errs) != 1 || errs[0].Code != "ERR_BIND" {
		t.Fatalf("bind error = %+v", errs)
	}
}
