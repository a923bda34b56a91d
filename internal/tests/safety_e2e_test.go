package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safezone/server/internal/model"
)

var seededNewestFirst = []string{
	"Metro Station - Safe Zone",
	"Community Safe House",
	"Women Help Center",
	"General Hospital",
	"City Central Police Station",
}

func TestSafeSpotsE2E(t *testing.T) {
	ts := newMemoryServer(t)
	seedSafeSpots(t, ts.Spots)

	t.Run("ListNewestFirst", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/safe-spots", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, seededNewestFirst, spotNames(t, env))
	})

	t.Run("NearbyRanksByDistance", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/safe-spots/nearby?lat=12.9716&lng=77.5946&limit=2", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"City Central Police Station", "General Hospital"}, spotNames(t, env))
	})

	t.Run("NearbyWithoutOriginUsesStoreOrder", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/safe-spots/nearby?limit=2", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"City Central Police Station", "General Hospital"}, spotNames(t, env))
	})

	t.Run("NearbyInvalidLimitFallsBack", func(t *testing.T) {
		_, env := ts.do(t, http.MethodGet, "/safe-spots/nearby?lat=12.9716&lng=77.5946&limit=abc", "", nil)
		assert.Len(t, spotNames(t, env), 5)
	})

	t.Run("NearbyByPost", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/safe-spots/nearby?lat=12.98&lng=77.59&limit=1", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"Community Safe House"}, spotNames(t, env))
	})
}

func TestAlertsE2E(t *testing.T) {
	ts := newMemoryServer(t)
	s := ts.signup(t, "Reporter", "+15550100", "reporter@example.com", "secret1")

	report := map[string]any{
		"type":        "harassment",
		"severity":    "high",
		"location":    map[string]any{"lat": 12.97, "lng": "77.59"},
		"description": "  poorly lit underpass  ",
	}

	t.Run("RequiresAuth", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/alerts/report", "", report)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Authorization token missing", env.Message)
	})

	t.Run("Validation", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/alerts/report", s.Token, map[string]any{
			"type":      "x",
			"timestamp": "yesterday",
			"location":  map[string]any{"lat": "north"},
		})
		assert.Equal(t, http.StatusBadRequest, status)
		errs := env.errors(t)
		assert.Contains(t, errs, `"type" length must be at least 2 characters long`)
		assert.Contains(t, errs, `"severity" is required`)
		assert.Contains(t, errs, `"timestamp" must be in ISO 8601 date format`)
		assert.Contains(t, errs, `"location.lat" must be a number`)
		assert.Contains(t, errs, `"location.lng" is required`)
	})

	var created model.Alert
	t.Run("Report", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/alerts/report", s.Token, report)
		require.Equal(t, http.StatusCreated, status, env.Message)
		env.decode(t, &created)
		assert.Equal(t, "harassment", created.Type)
		assert.Equal(t, "poorly lit underpass", created.Description)
		assert.InDelta(t, 77.59, created.Location.Lng, 1e-9)
		require.NotNil(t, created.ReportedBy)
		assert.Equal(t, s.User.ID, created.ReportedBy.String())
		assert.False(t, created.Timestamp.IsZero())
	})

	t.Run("ReportAlias", func(t *testing.T) {
		body := map[string]any{
			"type":      "theft",
			"severity":  "medium",
			"timestamp": "2024-01-02T03:04:05+02:00",
			"location":  map[string]any{"lat": 12.9, "lng": 77.5},
		}
		status, env := ts.do(t, http.MethodPost, "/report", s.Token, body)
		require.Equal(t, http.StatusCreated, status, env.Message)
		var a model.Alert
		env.decode(t, &a)
		assert.Equal(t, "2024-01-02T01:04:05Z", a.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"))
	})

	t.Run("ListMostRecentFirst", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/alerts", "", nil)
		require.Equal(t, http.StatusOK, status)
		var alerts []model.Alert
		env.decode(t, &alerts)
		require.Len(t, alerts, 2)
		assert.Equal(t, created.ID, alerts[0].ID)
		assert.Equal(t, "theft", alerts[1].Type)
	})

	assert.Contains(t, ts.scrapeMetrics(t), `safezone_alerts_reported_total{severity="high"} 1`)
}

func TestSOSE2E(t *testing.T) {
	ts := newMemoryServer(t)
	seedSafeSpots(t, ts.Spots)
	s := ts.signup(t, "Caller", "+15550199", "caller@example.com", "secret1")

	t.Run("RequiresAuth", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPost, "/sos/trigger", "", map[string]any{})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/sos/trigger", s.Token, nil)
		require.Equal(t, http.StatusCreated, status, env.Message)
		assert.Equal(t, "SOS processed successfully", env.Message)

		var data map[string]json.RawMessage
		env.decode(t, &data)
		assert.JSONEq(t, `"dispatched"`, string(data["status"]))
		assert.JSONEq(t, `"high"`, string(data["priority"]))
		assert.JSONEq(t, `"SOS triggered"`, string(data["description"]))
		assert.Equal(t, "null", string(data["location"]))
		assert.Equal(t, "null", string(data["attachmentPath"]))

		var user model.User
		require.NoError(t, json.Unmarshal(data["user"], &user))
		assert.Equal(t, "caller@example.com", user.Email)

		var spots []model.SafeSpot
		require.NoError(t, json.Unmarshal(data["nearestSafeSpots"], &spots))
		require.Len(t, spots, 3)
		assert.Equal(t, "City Central Police Station", spots[0].Name)
	})

	t.Run("MultipartWithAttachment", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("description", "followed home"))
		require.NoError(t, mw.WriteField("location[lat]", "12.97"))
		require.NoError(t, mw.WriteField("location[lng]", "77.59"))
		part, err := mw.CreateFormFile("attachment", "../evidence photo.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/sos/trigger", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		status, env := ts.send(t, req, s.Token)
		require.Equal(t, http.StatusCreated, status, env.Message)

		var data struct {
			Description    string  `json:"description"`
			AttachmentPath *string `json:"attachmentPath"`
			Location       *struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		}
		env.decode(t, &data)
		assert.Equal(t, "followed home", data.Description)
		require.NotNil(t, data.Location)
		assert.InDelta(t, 12.97, data.Location.Lat, 1e-9)

		require.NotNil(t, data.AttachmentPath)
		path := *data.AttachmentPath
		assert.Equal(t, ts.UploadDir, filepath.Dir(path))
		assert.True(t, strings.HasPrefix(filepath.Base(path), "evidence_photo-"), path)
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "jpeg-bytes", string(content))
	})

	t.Run("Validation", func(t *testing.T) {
		status, env := ts.do(t, http.MethodPost, "/sos/trigger", s.Token, map[string]any{"location": "nowhere"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, env.errors(t), `"location" must be of type object`)
	})

	assert.Contains(t, ts.scrapeMetrics(t), "safezone_sos_triggered_total 2")
}

func TestZonesAndRoutesE2E(t *testing.T) {
	ts := newMemoryServer(t)

	t.Run("LowRiskWithoutAlerts", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/zones/unsafe?lat=12.97&lng=77.59", "", nil)
		require.Equal(t, http.StatusOK, status)
		var zone map[string]any
		env.decode(t, &zone)
		assert.Equal(t, "unsafe", zone["zoneType"])
		assert.Equal(t, "low", zone["riskLevel"])
		assert.Equal(t, "zone-placeholder", zone["zoneId"])
		assert.Equal(t, map[string]any{"lat": 12.97, "lng": 77.59}, zone["location"])
	})

	t.Run("HighRiskAfterAnyAlert", func(t *testing.T) {
		s := ts.signup(t, "Z", "9", "z@example.com", "secret1")
		status, _ := ts.do(t, http.MethodPost, "/report", s.Token, map[string]any{
			"type": "assault", "severity": "high", "location": map[string]any{"lat": 1.0, "lng": 1.0},
		})
		require.Equal(t, http.StatusCreated, status)

		status, env := ts.do(t, http.MethodGet, "/zones/safe", "", nil)
		require.Equal(t, http.StatusOK, status)
		var zone map[string]any
		env.decode(t, &zone)
		assert.Equal(t, "safe", zone["zoneType"])
		assert.Equal(t, "high", zone["riskLevel"])
		assert.Nil(t, zone["location"])
		assert.Len(t, zone["alerts"], 1)
	})

	t.Run("SaferRoute", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/routes/safer?fromLat=1&fromLng=2", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{
			"routeId": "route-placeholder",
			"from": {"lat": 1, "lng": 2},
			"to": null,
			"riskScore": 0.3,
			"checkpoints": [
				{"lat": 1, "lng": 2, "label": "Start", "riskLevel": "medium"},
				{"label": "Destination", "riskLevel": "low"}
			]
		}`, string(env.Data))
	})
}

func TestRouterEdges(t *testing.T) {
	ts := newMemoryServer(t)

	t.Run("UnknownRoute", func(t *testing.T) {
		resp, err := ts.Server.Client().Get(ts.Server.URL + "/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.JSONEq(t, `{"success":false,"message":"Route not found","data":null}`, readBody(resp))
	})

	t.Run("WrongMethod", func(t *testing.T) {
		status, env := ts.do(t, http.MethodDelete, "/alerts", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Route not found", env.Message)
	})

	t.Run("Health", func(t *testing.T) {
		status, env := ts.do(t, http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"database":"ok"}`, string(env.Data))
	})

	t.Run("SecurityHeaders", func(t *testing.T) {
		resp, err := ts.Server.Client().Get(ts.Server.URL + "/alerts")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	})

	t.Run("Metrics", func(t *testing.T) {
		assert.Contains(t, ts.scrapeMetrics(t), `safezone_http_requests_total{method="GET",route="/alerts",status="200"}`)
	})
}
