package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/LukaSashic/PitchPerfect/internal/access"
	"github.com/LukaSashic/PitchPerfect/internal/models"
	"github.com/LukaSashic/PitchPerfect/internal/util"
)

// premiumRequiredMessage mirrors the upgrade prompt shown by the frontend.
const premiumRequiredMessage = "Diese Funktion erfordert ein Premium-Abonnement."

func (s *Server) analyzePitchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	reqID := util.GenerateRequestID()
	slog.Debug("Server.analyzePitchHandler: processing analyze request", "method", r.Method, "request_id", reqID)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.analyzePitchHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.AnalyzePitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.analyzePitchHandler: failed to decode JSON", "error", err, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: "Invalid JSON format"})
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.analyzePitchHandler: validation failed", "error", err, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	analysis, err := s.engine.AnalyzePitch(ctx, req)
	if err != nil {
		// Only validation errors surface from AnalyzePitch, and those were
		// already checked above.
		slog.Error("Server.analyzePitchHandler: analysis failed", "error", err, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: err.Error()})
		return
	}
	slog.Info("Server.analyzePitchHandler: analysis returned", "overall_score", analysis.OverallScore, "request_id", reqID)
	writeJSONResponse(w, http.StatusOK, analysis)
}

func (s *Server) chatTurnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	reqID := util.GenerateRequestID()
	slog.Debug("Server.chatTurnHandler: processing chat turn", "method", r.Method, "request_id", reqID)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatTurnHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.ChatTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatTurnHandler: failed to decode JSON", "error", err, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: "Invalid JSON format"})
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatTurnHandler: validation failed", "error", err, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: err.Error()})
		return
	}
	if !s.allowWorkshop(r.Context(), req.Identity) {
		slog.Warn("Server.chatTurnHandler: workshop access denied", "user_id", req.Identity.UserID, "request_id", reqID)
		writeJSONResponse(w, http.StatusForbidden, models.APIError{Error: premiumRequiredMessage})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	result, err := s.engine.CoachTurn(ctx, req)
	if err != nil {
		slog.Error("Server.chatTurnHandler: coaching turn failed", "error", err, "phase", req.Phase, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadGateway, models.APIError{
			Error:    "KI-Antwort fehlgeschlagen",
			Message:  err.Error(),
			Fallback: true,
		})
		return
	}
	slog.Info("Server.chatTurnHandler: turn complete", "phase", req.Phase, "phase_complete", result.PhaseComplete, "request_id", reqID)
	writeJSONResponse(w, http.StatusOK, result)
}

// evaluatePhaseResponse wraps an evaluation with request echo fields.
type evaluatePhaseResponse struct {
	Success    bool                    `json:"success"`
	Phase      int                     `json:"phase"`
	Evaluation *models.PhaseEvaluation `json:"evaluation"`
	Timestamp  time.Time               `json:"timestamp"`
}

func (s *Server) evaluatePhaseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	reqID := util.GenerateRequestID()
	slog.Debug("Server.evaluatePhaseHandler: processing evaluation", "method", r.Method, "request_id", reqID)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.evaluatePhaseHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.EvaluatePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.evaluatePhaseHandler: failed to decode JSON", "error", err, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: "Invalid JSON format"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	eval, err := s.engine.EvaluatePhase(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMissingFields), errors.Is(err, models.ErrNoRubric):
			slog.Warn("Server.evaluatePhaseHandler: bad request", "error", err, "phase", req.Phase, "request_id", reqID)
			writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: err.Error()})
		default:
			slog.Error("Server.evaluatePhaseHandler: evaluation failed", "error", err, "phase", req.Phase, "request_id", reqID)
			writeJSONResponse(w, http.StatusInternalServerError, models.APIError{Error: "Evaluation failed", Message: err.Error()})
		}
		return
	}
	slog.Info("Server.evaluatePhaseHandler: evaluation complete", "phase", req.Phase, "score", eval.Score, "request_id", reqID)
	writeJSONResponse(w, http.StatusOK, evaluatePhaseResponse{
		Success:    true,
		Phase:      req.Phase,
		Evaluation: eval,
		Timestamp:  time.Now().UTC(),
	})
}

func (s *Server) generateQuestionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	reqID := util.GenerateRequestID()
	slog.Debug("Server.generateQuestionHandler: processing question request", "method", r.Method, "request_id", reqID)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.generateQuestionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.AdaptiveQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.generateQuestionHandler: failed to decode JSON", "error", err, "request_id", reqID)
		writeJSONResponse(w, http.StatusBadRequest, models.APIError{Error: "Invalid JSON format"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	question := s.engine.GenerateQuestion(ctx, req)
	slog.Info("Server.generateQuestionHandler: question returned", "step", req.StepNumber, "request_id", reqID)
	writeJSONResponse(w, http.StatusOK, question)
}

func (s *Server) generateDiagnosticHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	reqID := util.GenerateRequestID()
	slog.Debug("Server.generateDiagnosticHandler: processing diagnostic request", "method", r.Method, "request_id", reqID)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.generateDiagnosticHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	// A malformed body still yields a useful diagnostic: the engine treats a
	// nil form as a fallback request.
	var req models.DiagnosticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.generateDiagnosticHandler: failed to decode JSON, serving fallback", "error", err, "request_id", reqID)
		req = models.DiagnosticRequest{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	report := s.engine.GenerateDiagnostic(ctx, req)
	slog.Info("Server.generateDiagnosticHandler: diagnostic returned", "issues", len(report.Issues), "request_id", reqID)
	writeJSONResponse(w, http.StatusOK, report)
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.historyHandler: processing history request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.historyHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	projectID := r.URL.Query().Get("projectId")
	phaseID, err := strconv.Atoi(r.URL.Query().Get("phase"))
	if userID == "" || err != nil || phaseID == 0 {
		slog.Warn("Server.historyHandler: missing query parameters", "user_id", userID, "phase_err", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrMissingFields.Error()))
		return
	}

	session := s.engine.Session(models.Identity{UserID: userID, ProjectID: projectID}, phaseID)
	history := session.History()
	if history == nil {
		history = []models.ChatMessage{}
	}
	slog.Debug("Server.historyHandler: history loaded", "user_id", userID, "phase", phaseID, "messages", len(history))
	writeJSONResponse(w, http.StatusOK, models.Success(history))
}

func (s *Server) resetPhaseHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.resetPhaseHandler: processing reset request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.resetPhaseHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.ResetPhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.resetPhaseHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.resetPhaseHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	session := s.engine.Session(req.Identity, req.Phase)
	if err := session.ResetPhase(); err != nil {
		slog.Error("Server.resetPhaseHandler: reset failed", "error", err, "user_id", req.Identity.UserID, "phase", req.Phase)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset phase"))
		return
	}
	slog.Info("Server.resetPhaseHandler: phase reset", "user_id", req.Identity.UserID, "phase", req.Phase)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Phase reset successfully", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.healthHandler: processing health check", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := map[string]interface{}{
		"phases": len(s.registry.All()),
		"time":   time.Now().UTC(),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(status))
}

// allowWorkshop gates the coaching workshop by subscription tier. Anonymous
// sessions stay open so founders can trial the flow before signing up.
func (s *Server) allowWorkshop(ctx context.Context, id *models.Identity) bool {
	if s.accessCtl == nil || id == nil || id.UserID == "" {
		return true
	}
	return s.accessCtl.HasFeature(ctx, id.UserID, access.FeatureWorkshop)
}
