package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/access"
	"github.com/LukaSashic/PitchPerfect/internal/flow"
	"github.com/LukaSashic/PitchPerfect/internal/genai"
	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/LukaSashic/PitchPerfect/internal/phase"
	"github.com/LukaSashic/PitchPerfect/internal/store"
)

// stubClient implements genai.ClientInterface for handler tests.
type stubClient struct {
	text string
	err  error
}

func (s *stubClient) Complete(_ context.Context, _ genai.CompletionRequest) (*genai.CompletionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &genai.CompletionResult{Text: s.text}, nil
}

type serverFixture struct {
	srv     *Server
	durable *store.InMemoryStore
}

func newTestServer(t *testing.T, client genai.ClientInterface, profiles access.ProfileSource) serverFixture {
	t.Helper()
	registry, err := phase.NewRegistry()
	if err != nil {
		t.Fatalf("failed to load phase catalog: %v", err)
	}
	durable := store.NewInMemoryStore()
	fallback := store.NewInMemoryStore()
	engine := flow.NewEngine(client, registry, durable, fallback)
	if profiles == nil {
		profiles = access.StaticProfiles{Assigned: access.TierPro}
	}
	srv := NewServer(engine, registry, durable, fallback, access.NewController(profiles), time.Second)
	return serverFixture{srv: srv, durable: durable}
}

func postJSON(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzePitchHandlerTooShort(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	rec := postJSON(t, f.srv, "/api/analyze-pitch", models.AnalyzePitchRequest{PitchText: "zu kurz"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body models.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "Pitch text zu kurz. Mindestens 50 Zeichen erforderlich." {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}

func TestAnalyzePitchHandlerFallback(t *testing.T) {
	// No model client configured; the endpoint still answers with the
	// demonstration analysis.
	f := newTestServer(t, nil, nil)
	rec := postJSON(t, f.srv, "/api/analyze-pitch", models.AnalyzePitchRequest{
		PitchText: strings.Repeat("Deutsche SaaS-Gründer verlieren 70 Tage pro Deal. ", 3),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var analysis models.PitchAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if analysis.OverallScore != 42 {
		t.Errorf("fallback score = %d, want 42", analysis.OverallScore)
	}
	if analysis.Metadata == nil || !analysis.Metadata.Fallback {
		t.Errorf("fallback must be marked in metadata")
	}
	if analysis.FinancialImpact == nil {
		t.Errorf("financial impact missing from fallback analysis")
	}
}

func TestChatTurnHandlerMissingFields(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	rec := postJSON(t, f.srv, "/api/chat-turn", models.ChatTurnRequest{Phase: 2})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body models.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != models.ErrMissingFields.Error() {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}

func TestChatTurnHandlerModelFailure(t *testing.T) {
	f := newTestServer(t, &stubClient{err: models.ErrModelUnavailable}, nil)
	rec := postJSON(t, f.srv, "/api/chat-turn", models.ChatTurnRequest{Phase: 2, Message: "Hallo"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body models.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "KI-Antwort fehlgeschlagen" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
	if !body.Fallback {
		t.Errorf("model failures must be flagged as fallback for the frontend")
	}
}

func TestChatTurnHandlerSuccess(t *testing.T) {
	f := newTestServer(t, &stubClient{
		text: "false</complete>\n<completion_score>60</completion_score>\n</phase_status>\n<response>Wer genau hat dieses Problem?</response>",
	}, nil)
	rec := postJSON(t, f.srv, "/api/chat-turn", models.ChatTurnRequest{
		Phase:    2,
		Message:  "Wir helfen Restaurants",
		Identity: &models.Identity{UserID: "u1", ProjectID: "p1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result models.ChatTurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if result.Content != "Wer genau hat dieses Problem?" {
		t.Errorf("unexpected content: %q", result.Content)
	}
	if result.CompletionScore != 60 || result.PhaseComplete {
		t.Errorf("unexpected status: %+v", result)
	}

	// The identified turn was persisted.
	turns, err := f.durable.ListTurns("u1", "p1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("persisted %d turns, want 1", len(turns))
	}
}

func TestChatTurnHandlerFreeTierBlocked(t *testing.T) {
	f := newTestServer(t, &stubClient{}, access.StaticProfiles{Assigned: access.TierFree})
	rec := postJSON(t, f.srv, "/api/chat-turn", models.ChatTurnRequest{
		Phase:    2,
		Message:  "Hallo",
		Identity: &models.Identity{UserID: "u1"},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	// Anonymous trials stay open even on the free tier.
	rec = postJSON(t, f.srv, "/api/chat-turn", models.ChatTurnRequest{Phase: 2, Message: "Hallo"})
	if rec.Code == http.StatusForbidden {
		t.Errorf("anonymous coaching must not be tier-gated")
	}
}

func TestEvaluatePhaseHandlerNoRubric(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	rec := postJSON(t, f.srv, "/api/evaluate-phase", models.EvaluatePhaseRequest{
		Phase:               9,
		ConversationHistory: []models.ChatMessage{{Role: models.RoleUser, Content: "x"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEvaluatePhaseHandlerSuccess(t *testing.T) {
	f := newTestServer(t, &stubClient{text: `{"score": 75, "canProceed": false, "feedback": "Gut", "nextSteps": "Weiter", "gaps": []}`}, nil)
	rec := postJSON(t, f.srv, "/api/evaluate-phase", models.EvaluatePhaseRequest{
		Phase:               2,
		ConversationHistory: []models.ChatMessage{{Role: models.RoleUser, Content: "x"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body evaluatePhaseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success || body.Phase != 2 {
		t.Errorf("unexpected envelope: %+v", body)
	}
	if body.Evaluation == nil || !body.Evaluation.CanProceed {
		t.Errorf("score 75 must proceed: %+v", body.Evaluation)
	}
}

func TestGenerateQuestionHandlerFallback(t *testing.T) {
	f := newTestServer(t, nil, nil)
	rec := postJSON(t, f.srv, "/api/generate-adaptive-question", models.AdaptiveQuestionRequest{StepNumber: 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var q models.AdaptiveQuestion
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(q.SuggestedAnswers) != 3 {
		t.Errorf("fallback question must carry 3 answers, got %d", len(q.SuggestedAnswers))
	}
}

func TestGenerateDiagnosticHandlerMalformedBody(t *testing.T) {
	f := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-diagnostic", strings.NewReader("no json"))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var report models.DiagnosticReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(report.Issues) != 7 {
		t.Errorf("expected fallback diagnostic with 7 issues, got %d", len(report.Issues))
	}
}

func TestHistoryHandler(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	f.durable.AddTurn(models.ConversationTurn{
		UserID: "u1", ProjectID: "p1", PhaseNumber: 2, TurnNumber: 1,
		UserMessage: "Hallo", AIResponse: "Wer genau?",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/history?userId=u1&projectId=p1&phase=2", nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Status string               `json:"status"`
		Result []models.ChatMessage `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field = %q, want ok", resp.Status)
	}
	if len(resp.Result) != 2 {
		t.Fatalf("history length = %d, want 2", len(resp.Result))
	}
	if resp.Result[0].Role != models.RoleUser || resp.Result[1].Role != models.RoleAssistant {
		t.Errorf("history roles must alternate: %s, %s", resp.Result[0].Role, resp.Result[1].Role)
	}
}

func TestHistoryHandlerMissingParams(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/history?phase=2", nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestResetPhaseHandler(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	f.durable.AddTurn(models.ConversationTurn{
		UserID: "u1", ProjectID: "p1", PhaseNumber: 2, TurnNumber: 1,
		UserMessage: "Hallo", AIResponse: "Wer genau?",
	})

	rec := postJSON(t, f.srv, "/api/reset-phase", models.ResetPhaseRequest{
		Phase:    2,
		Identity: models.Identity{UserID: "u1", ProjectID: "p1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	turns, _ := f.durable.ListTurns("u1", "p1", 2)
	if len(turns) != 0 {
		t.Errorf("turns remain after reset: %d", len(turns))
	}
}

func TestResetPhaseHandlerValidation(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	rec := postJSON(t, f.srv, "/api/reset-phase", models.ResetPhaseRequest{Phase: 2})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	f := newTestServer(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newTestServer(t, &stubClient{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/chat-turn", nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow header = %q, want POST", allow)
	}
}
