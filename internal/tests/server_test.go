package tests

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/safezone/server/internal/auth"
	"github.com/safezone/server/internal/db"
	"github.com/safezone/server/internal/events"
	httphandler "github.com/safezone/server/internal/http"
	"github.com/safezone/server/internal/http/handlers"
	"github.com/safezone/server/internal/metrics"
	"github.com/safezone/server/internal/middleware"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
	"github.com/safezone/server/internal/repo/memory"
	"github.com/safezone/server/internal/safety"
	"github.com/safezone/server/internal/storage"
)

const (
	testSecret       = "test-jwt-secret-at-least-32-characters-long"
	testMaxBodyBytes = 100 << 10
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type backend struct {
	users  repo.UserRepo
	alerts repo.AlertRepo
	spots  repo.SafeSpotRepo
	pinger handlers.Pinger

	limiter middleware.Limiter
}

// testServer holds the running API and the stores behind it
type testServer struct {
	Server    *httptest.Server
	DB        *sql.DB
	Users     repo.UserRepo
	Alerts    repo.AlertRepo
	Spots     repo.SafeSpotRepo
	Tokens    *auth.TokenService
	Metrics   *metrics.Metrics
	UploadDir string
}

func newServer(t *testing.T, b backend) *testServer {
	t.Helper()
	logger := zap.NewNop()

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	authService := auth.NewService(b.users, auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens, logger)

	uploadDir := t.TempDir()
	store, err := storage.NewDiskStore(uploadDir)
	require.NoError(t, err)

	limiter := b.limiter
	if limiter == nil {
		memLimiter := middleware.NewMemoryLimiter(1000, 1000)
		t.Cleanup(memLimiter.Close)
		limiter = memLimiter
	}

	m := metrics.New()
	publisher := events.NopPublisher{}

	router := httphandler.NewRouter(httphandler.Deps{
		Logger:         logger,
		Metrics:        m,
		Tokens:         tokens,
		Users:          b.users,
		Limiter:        limiter,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   testMaxBodyBytes,
		MaxUploadBytes: 1 << 20,
		Auth:           handlers.NewAuthHandler(authService),
		Alerts:         handlers.NewAlertHandler(safety.NewAlertService(b.alerts, publisher, m, logger)),
		SafeSpots:      handlers.NewSafeSpotHandler(safety.NewSafeSpotService(b.spots)),
		Zones:          handlers.NewZoneHandler(safety.NewZoneService(b.alerts), safety.NewRouteService()),
		SOS:            handlers.NewSOSHandler(safety.NewSOSService(b.spots, publisher, m, logger), store, 1<<20, logger),
		Health:         handlers.NewHealthHandler(b.pinger, logger),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		Server:    server,
		Users:     b.users,
		Alerts:    b.alerts,
		Spots:     b.spots,
		Tokens:    tokens,
		Metrics:   m,
		UploadDir: uploadDir,
	}
}

func memoryBackend() backend {
	return backend{
		users:  memory.NewUserRepo(),
		alerts: memory.NewAlertRepo(),
		spots:  memory.NewSafeSpotRepo(),
		pinger: okPinger{},
	}
}

func newMemoryServer(t *testing.T) *testServer {
	t.Helper()
	return newServer(t, memoryBackend())
}

// newPostgresServer runs the API against DATABASE_URL and skips without it
func newPostgresServer(t *testing.T) *testServer {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	database, err := db.Open(ctx, url, zap.NewNop())
	require.NoError(t, err, "database open must succeed; check DATABASE_URL and that test DB exists")
	t.Cleanup(func() { database.Close() })
	require.NoError(t, PrepareDatabase(ctx, database), "migrations must run successfully")

	ts := newServer(t, backend{
		users:  repo.NewUserRepo(database),
		alerts: repo.NewAlertRepo(database),
		spots:  repo.NewSafeSpotRepo(database),
		pinger: database,
	})
	ts.DB = database
	return ts
}

func (s *testServer) Truncate(t *testing.T) {
	t.Helper()
	if s.DB == nil {
		return
	}
	require.NoError(t, TruncateTables(context.Background(), s.DB), "truncate tables")
}

// envelope matches every API response body
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) errors(t *testing.T) []string {
	t.Helper()
	var data struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(e.Data, &data))
	return data.Errors
}

func (e envelope) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, v), "data: %s", e.Data)
}

// do sends a JSON request and decodes the envelope. body may be nil.
func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw := readBody(resp)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env), "body: %s", raw)
	return resp.StatusCode, env
}

// session matches the data of signup and login
type session struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
	} `json:"user"`
}

func (s *testServer) signup(t *testing.T, name, phone, email, password string) session {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": name, "phone": phone, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, status, "signup: %s", env.Message)
	var out session
	env.decode(t, &out)
	return out
}

// seedSafeSpots stores the demo spots oldest first
func seedSafeSpots(t *testing.T, spots repo.SafeSpotRepo) {
	t.Helper()
	base := time.Now().Add(-time.Hour).UTC()
	in := []model.SafeSpot{
		{Name: "City Central Police Station", Type: "police-station", Address: "MG Road", Location: model.Location{Lat: 12.9716, Lng: 77.5946}},
		{Name: "General Hospital", Type: "hospital", Address: "Residency Road", Location: model.Location{Lat: 12.975, Lng: 77.59}},
		{Name: "Women Help Center", Type: "help-center", Address: "Brigade Road", Location: model.Location{Lat: 12.978, Lng: 77.6}},
		{Name: "Community Safe House", Type: "community-center", Address: "Richmond Road", Location: model.Location{Lat: 12.98, Lng: 77.59}},
		{Name: "Metro Station - Safe Zone", Type: "public-transport", Address: "Cubbon Park", Location: model.Location{Lat: 12.965, Lng: 77.6}},
	}
	for i, spot := range in {
		spot.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := spots.Create(context.Background(), spot)
		require.NoError(t, err)
	}
}

func spotNames(t *testing.T, env envelope) []string {
	t.Helper()
	var spots []model.SafeSpot
	env.decode(t, &spots)
	names := make([]string, 0, len(spots))
	for _, s := range spots {
		names = append(names, s.Name)
	}
	return names
}

func (s *testServer) scrapeMetrics(t *testing.T) string {
	t.Helper()
	resp, err := s.Server.Client().Get(s.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return readBody(resp)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
