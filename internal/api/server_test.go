package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/auth"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/events"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// stubEngine satisfies EngineAPI with canned responses
type stubEngine struct {
	paused    bool
	cyclesRun int
}

func (e *stubEngine) Status() map[string]interface{} {
	return map[string]interface{}{"running": true, "paused": e.paused}
}

func (e *stubEngine) Conditions() map[string]condition.MarketCondition {
	return map[string]condition.MarketCondition{
		"SPY": {Symbol: "SPY", Regime: condition.RegimeTrend},
	}
}

func (e *stubEngine) OpenPositions() []trade.Position {
	return []trade.Position{{Symbol: "SPY", Direction: trade.DirectionLong}}
}

func (e *stubEngine) RiskSnapshot() risk.PortfolioSnapshot {
	return risk.PortfolioSnapshot{Equity: 100000}
}

func (e *stubEngine) RunCycle(ctx context.Context) (map[string]interface{}, error) {
	e.cyclesRun++
	return map[string]interface{}{"trades_executed": 0}, nil
}

func (e *stubEngine) Pause()  { e.paused = true }
func (e *stubEngine) Resume() { e.paused = false }

func newTestServer(jwtManager *auth.JWTManager) (*Server, *stubEngine) {
	engine := &stubEngine{}
	server := NewServer(ServerConfig{
		Port:            0,
		ProductionMode:  true,
		RateLimitPerMin: 1000,
	}, engine, nil, events.NewEventBus(), jwtManager, zerolog.Nop())
	return server, engine
}

func doRequest(s *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// TestHealthEndpoint always answers without auth
func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(nil)

	rec := doRequest(server, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("health body is not JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status field = %v, want ok", body["status"])
	}
}

// TestStatusAndPositionsEndpoints serve the engine's view
func TestStatusAndPositionsEndpoints(t *testing.T) {
	server, _ := newTestServer(nil)

	rec := doRequest(server, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want 200", rec.Code)
	}

	rec = doRequest(server, http.MethodGet, "/api/positions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("positions endpoint = %d, want 200", rec.Code)
	}

	var body struct {
		Count     int              `json:"count"`
		Positions []trade.Position `json:"positions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("positions body is not JSON: %v", err)
	}
	if body.Count != 1 || body.Positions[0].Symbol != "SPY" {
		t.Errorf("positions body = %+v, want the single SPY position", body)
	}
}

// TestTradesEndpointWithoutStore answers 503 when persistence is disabled
func TestTradesEndpointWithoutStore(t *testing.T) {
	server, _ := newTestServer(nil)

	rec := doRequest(server, http.MethodGet, "/api/trades", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("trades endpoint = %d, want 503 with no trade store", rec.Code)
	}
}

// TestControlEndpoints drive pause, resume, and manual cycles
func TestControlEndpoints(t *testing.T) {
	server, engine := newTestServer(nil)

	if rec := doRequest(server, http.MethodPost, "/api/control/pause", ""); rec.Code != http.StatusOK {
		t.Errorf("pause = %d, want 200", rec.Code)
	}
	if !engine.paused {
		t.Error("pause should reach the engine")
	}

	if rec := doRequest(server, http.MethodPost, "/api/control/resume", ""); rec.Code != http.StatusOK {
		t.Errorf("resume = %d, want 200", rec.Code)
	}
	if engine.paused {
		t.Error("resume should reach the engine")
	}

	if rec := doRequest(server, http.MethodPost, "/api/control/run-cycle", ""); rec.Code != http.StatusOK {
		t.Errorf("run-cycle = %d, want 200", rec.Code)
	}
	if engine.cyclesRun != 1 {
		t.Errorf("cycles run = %d, want 1", engine.cyclesRun)
	}
}

// TestAuthProtectsAPI rejects unauthenticated requests when auth is enabled
// and enforces the admin role on control routes.
func TestAuthProtectsAPI(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)
	server, _ := newTestServer(jwtManager)

	if rec := doRequest(server, http.MethodGet, "/api/status", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	viewer, err := jwtManager.GenerateAccessToken(auth.OperatorClaims{OperatorID: "v1", Role: "viewer"})
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	if rec := doRequest(server, http.MethodGet, "/api/status", viewer); rec.Code != http.StatusOK {
		t.Errorf("viewer status = %d, want 200", rec.Code)
	}
	if rec := doRequest(server, http.MethodPost, "/api/control/pause", viewer); rec.Code != http.StatusForbidden {
		t.Errorf("viewer control = %d, want 403", rec.Code)
	}

	admin, err := jwtManager.GenerateAccessToken(auth.OperatorClaims{OperatorID: "a1", Role: "admin"})
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}
	if rec := doRequest(server, http.MethodPost, "/api/control/pause", admin); rec.Code != http.StatusOK {
		t.Errorf("admin control = %d, want 200", rec.Code)
	}
}

// TestRateLimiter caps requests per key inside the window
func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("client-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("client-a") {
		t.Error("fourth request inside the window should be blocked")
	}
	if !limiter.Allow("client-b") {
		t.Error("a different client should not share the limit")
	}
}
