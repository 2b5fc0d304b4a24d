package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/guardian/internal/config"
	"github.com/antoniostano/guardian/internal/conversation"
	"github.com/antoniostano/guardian/internal/education"
	"github.com/antoniostano/guardian/internal/emotion"
	"github.com/antoniostano/guardian/internal/patterns"
	"github.com/antoniostano/guardian/internal/safety"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Config{
		PatternsPath: filepath.Join(t.TempDir(), "safety_patterns.json"),
		MatchEngine:  patterns.EngineAutomaton,
	}
	matcher, err := patterns.NewMatcher(patterns.Default(), patterns.EngineAutomaton)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	registry := conversation.NewRegistry(20)
	engine, err := safety.NewEngine(
		safety.DefaultConfig(),
		matcher,
		conversation.NewAnalyzer(registry, conversation.DefaultThresholds()),
		emotion.NewAnalyzer(),
		education.NewEvaluator(),
		nil,
		nil,
		4,
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return New(cfg, engine, registry, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/safety/analyze", analyzeRequest{
		Text:     "I hate you, you are stupid",
		ChildAge: 6,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var v safety.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if v.IsSafe {
		t.Fatal("IsSafe = true, want false")
	}
	if v.OverallRisk != safety.RiskHigh {
		t.Fatalf("OverallRisk = %v, want %v", v.OverallRisk, safety.RiskHigh)
	}
}

func TestAnalyzeRejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/safety/analyze", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeUsesSessionMemory(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	for _, text := range []string{"I'm scared", "so afraid", "I'm scared again", "still afraid", "scared of the dark"} {
		rec := doJSON(t, router, http.MethodPost, "/v1/safety/analyze", analyzeRequest{
			Text:      text,
			ChildAge:  6,
			SessionID: "sess-mem",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodPost, "/v1/safety/analyze", analyzeRequest{
		Text:      "still so scared",
		ChildAge:  6,
		SessionID: "sess-mem",
	})
	var v safety.Verdict
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if v.Context.ContextSafe {
		t.Fatal("Context.ContextSafe = true, want false after repeated fear turns")
	}
}

func TestBatchEndpointKeepsOrder(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/safety/batch", batchRequest{
		Texts: []string{
			"I hate you, you are stupid",
			"Let's count to ten and learn colors!",
		},
		ChildAge: 6,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp batchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Verdicts) != 2 {
		t.Fatalf("got %d verdicts, want 2", len(resp.Verdicts))
	}
	if resp.Verdicts[0].OverallRisk != safety.RiskHigh {
		t.Fatalf("verdicts[0].OverallRisk = %v, want %v", resp.Verdicts[0].OverallRisk, safety.RiskHigh)
	}
	if resp.Verdicts[1].OverallRisk != safety.RiskSafe {
		t.Fatalf("verdicts[1].OverallRisk = %v, want %v", resp.Verdicts[1].OverallRisk, safety.RiskSafe)
	}
}

func TestBatchRejectsEmptyTexts(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/safety/batch", batchRequest{ChildAge: 6})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateConfigEndpoint(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPut, "/v1/safety/config", safety.Config{
		ToxicityThreshold: 0.5, HighRiskThreshold: 0.3, CriticalThreshold: 0.7,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for mis-ordered thresholds", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPut, "/v1/safety/config", safety.Config{
		ToxicityThreshold: 0.2, HighRiskThreshold: 0.4, CriticalThreshold: 0.8,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got safety.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if got.HighRiskThreshold != 0.4 {
		t.Fatalf("HighRiskThreshold = %v, want 0.4", got.HighRiskThreshold)
	}
}

func TestReloadPatternsCreatesDefaultCatalog(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/safety/patterns/reload", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["categories"].(float64) < 1 {
		t.Fatalf("categories = %v, want at least 1", resp["categories"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, http.MethodPost, "/v1/safety/analyze", analyzeRequest{Text: "hello", ChildAge: 6})

	req := httptest.NewRequest(http.MethodGet, "/v1/safety/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Performance safety.PerformanceMetrics `json:"performance"`
		Engine      string                    `json:"engine"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if resp.Performance.TotalRequests != 1 {
		t.Fatalf("TotalRequests = %d, want 1", resp.Performance.TotalRequests)
	}
	if resp.Engine != patterns.EngineAutomaton {
		t.Fatalf("Engine = %q, want %q", resp.Engine, patterns.EngineAutomaton)
	}
}

func TestStreamAnalyzesOverWebsocket(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/safety/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(streamRequest{Text: "What is your address?", ChildAge: 7}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var v safety.Verdict
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("read: %v", err)
	}
	if v.IsSafe {
		t.Fatal("IsSafe = true, want false")
	}
	if v.OverallRisk != safety.RiskCritical {
		t.Fatalf("OverallRisk = %v, want %v", v.OverallRisk, safety.RiskCritical)
	}

	if err := conn.WriteJSON(streamRequest{Text: "Let's count to ten and learn colors!", ChildAge: 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&v); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !v.IsSafe {
		t.Fatal("IsSafe = false, want true")
	}
}

func TestStreamRejectsCrossOrigin(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/safety/stream"
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatal("cross-origin dial succeeded, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %v, want 403", resp)
	}
}
