package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/detection"
	"BotRadar/internal/usecase"
	xhttp "BotRadar/pkg/http"
)

type listBody struct {
	Status int `json:"status"`
	Data   struct {
		Rows  []models.DetectedActor `json:"rows"`
		Total int64                  `json:"total"`
	} `json:"data"`
}

func newTestServer(t *testing.T) (*echo.Echo, *detection.Engine) {
	t.Helper()
	eng := detection.NewEngine(detection.DefaultConfig())
	base := float64(time.Now().Unix()) - 60
	for i := 0; i < 20; i++ {
		side := models.SideBuy
		if i%2 == 1 {
			side = models.SideSell
		}
		ev := models.NewTradeEvent("binance", "BTCUSDT", 500, 1, side, base+float64(i), "", false)
		if _, err := eng.AnalyzeTrade(ev); err != nil {
			t.Fatalf("analyze: %v", err)
		}
	}
	e := echo.New()
	e.HTTPErrorHandler = xhttp.ErrorHandler
	NewActorsHandler(nil, usecase.NewActorsUseCase(eng, nil, nil, 0), nil).RegisterRoutes(e)
	return e, eng
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestActorsHandler_List(t *testing.T) {
	e, _ := newTestServer(t)

	rec := get(e, "/api/actors?venue=binance")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var body listBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Total != 1 || body.Data.Rows[0].PatternType != models.PatternMarketMaker {
		t.Fatalf("rows = %+v", body.Data)
	}

	rec = get(e, "/api/actors?venue=okx")
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Data.Total != 0 || body.Data.Rows == nil {
		t.Fatalf("filtered list must be empty not null: %s", rec.Body.String())
	}
}

func TestActorsHandler_ListValidation(t *testing.T) {
	e, _ := newTestServer(t)
	for _, path := range []string{
		"/api/actors?pattern=whale",
		"/api/actors?limit=5000",
		"/api/actors?include_gone=maybe",
	} {
		if rec := get(e, path); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestActorsHandler_Get(t *testing.T) {
	e, eng := newTestServer(t)
	id := eng.Registry().Snapshot()[0].ID

	rec := get(e, "/api/actors/"+id)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data models.DetectedActor `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Data.ID != id || body.Data.Status != models.StatusActive {
		t.Fatalf("actor = %+v", body.Data)
	}

	if rec := get(e, "/api/actors/00000000000000ff"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown actor status = %d", rec.Code)
	}
	if rec := get(e, "/api/actors/not-an-id"); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id status = %d", rec.Code)
	}
}

func TestActorsHandler_HistoryDisabled(t *testing.T) {
	e, eng := newTestServer(t)
	id := eng.Registry().Snapshot()[0].ID
	if rec := get(e, "/api/actors/"+id+"/history"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestActorsHandler_Stats(t *testing.T) {
	e, _ := newTestServer(t)
	rec := get(e, "/api/stats")
	var body struct {
		Data models.ActorStats `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Total != 1 || body.Data.ByStatus[models.StatusActive] != 1 {
		t.Fatalf("stats = %+v", body.Data)
	}
}

func TestActorsHandler_FeedDisabled(t *testing.T) {
	e, _ := newTestServer(t)
	if rec := get(e, "/api/classifications/recent"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := get(e, "/api/classifications/recent?limit=0"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("zero limit falls back to default, status = %d", rec.Code)
	}
}
