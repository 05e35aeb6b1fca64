// handlers_flight_test.go - Tests for flight catalog handlers
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/models"
	"github.com/cloudseed-visualizer/backend/internal/testutil"
)

const testFlightID = "2021-02-12_17-42-10"

var testFlightStart = time.Date(2021, 2, 12, 17, 42, 10, 0, time.UTC)

func newFlightFixture(t *testing.T) (*testutil.MockStore, FlightHandler) {
	t.Helper()

	store := testutil.NewMockStore()
	store.AddFlight(testFlightID,
		testutil.GeoJSONTrack(testFlightStart, 5, 30),
		testutil.RadarMetaJSON(testFlightStart, 3, 60))

	loader, err := catalog.NewLoader(store, 4, nil)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}

	return store, NewFlightHandler(store, loader, nil)
}

func getContext(e *echo.Echo, target string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	if len(names) > 0 {
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func TestFlightHandler_HandleListFlights(t *testing.T) {
	store, handler := newFlightFixture(t)
	store.AddFlight("2021-03-01_09-15-00",
		testutil.GeoJSONTrack(testFlightStart.AddDate(0, 0, 17), 3, 30),
		testutil.RadarMetaJSON(testFlightStart.AddDate(0, 0, 17), 2, 60))

	e := echo.New()
	c, rec := getContext(e, "/api/flights")

	if err := handler.HandleListFlights(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var flights []models.FlightInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &flights); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(flights) != 2 {
		t.Fatalf("expected 2 flights, got %d", len(flights))
	}
	if flights[0].DisplayName == "" {
		t.Error("expected display name to be populated")
	}
}

func TestFlightHandler_HandleListFlights_Empty(t *testing.T) {
	store := testutil.NewMockStore()
	loader, err := catalog.NewLoader(store, 4, nil)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	handler := NewFlightHandler(store, loader, nil)

	e := echo.New()
	c, rec := getContext(e, "/api/flights")

	if err := handler.HandleListFlights(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", got)
	}
}

func TestFlightHandler_HandleGetFlight(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
		errCode string
	}{
		{name: "existing flight", id: testFlightID},
		{name: "unknown flight", id: "2099-01-01_00-00-00", wantErr: true, errCode: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, handler := newFlightFixture(t)

			e := echo.New()
			c, rec := getContext(e, "/api/flights/"+tt.id, "id", tt.id)

			err := handler.HandleGetFlight(c)

			if tt.wantErr {
				apiErr, ok := err.(*APIError)
				if !ok {
					t.Fatalf("expected APIError, got %T", err)
				}
				if apiErr.Code != tt.errCode {
					t.Errorf("expected error code %s, got %s", tt.errCode, apiErr.Code)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var info models.FlightInfo
			if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if info.ID != tt.id {
				t.Errorf("expected flight %s, got %s", tt.id, info.ID)
			}
		})
	}
}

func TestFlightHandler_HandleGetTrack(t *testing.T) {
	_, handler := newFlightFixture(t)

	e := echo.New()
	c, rec := getContext(e, "/api/flights/"+testFlightID+"/track", "id", testFlightID)

	if err := handler.HandleGetTrack(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var track models.FlightTrack
	if err := json.Unmarshal(rec.Body.Bytes(), &track); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if track.FlightID != testFlightID {
		t.Errorf("expected flightId %s, got %s", testFlightID, track.FlightID)
	}
	if len(track.Points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(track.Points))
	}
	for i := 1; i < len(track.Points); i++ {
		if track.Points[i].Timestamp.Before(track.Points[i-1].Timestamp) {
			t.Fatalf("points not sorted at index %d", i)
		}
	}
	if len(track.Path) == 0 {
		t.Error("expected non-empty path")
	}
}

func TestFlightHandler_HandleGetTrack_UnknownFlight(t *testing.T) {
	_, handler := newFlightFixture(t)

	e := echo.New()
	c, _ := getContext(e, "/api/flights/nope/track", "id", "nope")

	err := handler.HandleGetTrack(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", apiErr.Status)
	}
}

func TestFlightHandler_HandleGetTrackMsgpack(t *testing.T) {
	_, handler := newFlightFixture(t)

	e := echo.New()
	c, rec := getContext(e, "/api/flights/"+testFlightID+"/track/msgpack", "id", testFlightID)

	if err := handler.HandleGetTrackMsgpack(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/msgpack" {
		t.Errorf("expected msgpack content type, got %s", ct)
	}

	var track models.FlightTrack
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &track); err != nil {
		t.Fatalf("failed to decode msgpack: %v", err)
	}
	if len(track.Points) != 5 {
		t.Errorf("expected 5 points, got %d", len(track.Points))
	}
}

func TestFlightHandler_HandleGetRadarMeta(t *testing.T) {
	_, handler := newFlightFixture(t)

	e := echo.New()
	c, rec := getContext(e, "/api/flights/"+testFlightID+"/radar", "id", testFlightID)

	if err := handler.HandleGetRadarMeta(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		FlightID string              `json:"flightId"`
		Bounds   models.LatLngBounds `json:"bounds"`
		Frames   []models.RadarFrame `json:"frames"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.FlightID != testFlightID {
		t.Errorf("expected flightId %s, got %s", testFlightID, resp.FlightID)
	}
	if len(resp.Frames) != 3 {
		t.Errorf("expected 3 frames, got %d", len(resp.Frames))
	}
	if resp.Bounds.IsZero() {
		t.Error("expected non-zero bounds")
	}
}

func TestFlightHandler_HandleGetRadarFrame(t *testing.T) {
	store, handler := newFlightFixture(t)

	dir := t.TempDir()
	framePath := filepath.Join(dir, "radar_20210212_174210.png")
	if err := os.WriteFile(framePath, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	store.AddFrame(testFlightID, "radar_20210212_174210.png", framePath)

	e := echo.New()
	c, rec := getContext(e, "/api/flights/"+testFlightID+"/frames/radar_20210212_174210.png",
		"id", testFlightID, "file", "radar_20210212_174210.png")

	if err := handler.HandleGetRadarFrame(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "png-bytes" {
		t.Errorf("unexpected body %q", got)
	}
	if cc := rec.Header().Get("Cache-Control"); cc == "" {
		t.Error("expected Cache-Control header on frame response")
	}
}

func TestFlightHandler_HandleGetRadarFrame_NotFound(t *testing.T) {
	_, handler := newFlightFixture(t)

	e := echo.New()
	c, _ := getContext(e, "/api/flights/"+testFlightID+"/frames/missing.png",
		"id", testFlightID, "file", "missing.png")

	err := handler.HandleGetRadarFrame(c)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", apiErr.Status)
	}
}
