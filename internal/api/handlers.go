// Package api provides HTTP handlers for NatureScripts endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/flow"
	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	"github.com/joelbyler272/naturescripts-sub000/internal/util"
)

// sessionIDHexLength is the length of generated session identifiers.
const sessionIDHexLength = 16

// onboardingMessageRequest is the request body for an onboarding turn.
type onboardingMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// onboardingMessageResult is the result payload for an onboarding turn.
type onboardingMessageResult struct {
	SessionID string                `json:"session_id"`
	Reply     string                `json:"reply"`
	Step      models.OnboardingStep `json:"step"`
	Ready     bool                  `json:"ready"`
}

func (s *Server) onboardingMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.onboardingMessageHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req onboardingMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.onboardingMessageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" {
		// A fresh session starts at the first user message.
		req.SessionID = util.GenerateRandomID("ses_", sessionIDHexLength)
		slog.Debug("Server.onboardingMessageHandler: created new session", "sessionID", req.SessionID)
	}

	reply, state, err := s.onboarding.ProcessMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		slog.Error("Server.onboardingMessageHandler: turn failed", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message, please try again"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(onboardingMessageResult{
		SessionID: req.SessionID,
		Reply:     reply,
		Step:      state.Step,
		Ready:     state.Step == models.StepReady,
	}))
}

// consultationMessageRequest is the request body for a consultation turn.
type consultationMessageRequest struct {
	SessionID string `json:"session_id"`
	Tier      string `json:"tier"`
	Message   string `json:"message"`
}

func (s *Server) consultationMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.consultationMessageHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req consultationMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.consultationMessageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = util.GenerateRandomID("ses_", sessionIDHexLength)
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyMessage.Error()))
		return
	}

	result, err := s.consultation.ProcessMessage(r.Context(), req.SessionID, models.ParseTier(req.Tier), req.Message)
	if err != nil {
		slog.Error("Server.consultationMessageHandler: turn failed", "error", err, "sessionID", req.SessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message, please try again"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(struct {
		SessionID string `json:"session_id"`
		*flow.ConsultationResult
	}{SessionID: req.SessionID, ConsultationResult: result}))
}

// generateRequest is the request body for protocol generation.
type generateRequest struct {
	SessionID string `json:"session_id"`
	Tier      string `json:"tier"`
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.generateHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.generateHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.SessionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptySessionID.Error()))
		return
	}

	protocol, err := s.generator.Generate(r.Context(), req.SessionID, models.ParseTier(req.Tier))
	if err != nil {
		// Conversation state is untouched; the user can retry generation.
		slog.Error("Server.generateHandler: generation failed", "error", err, "sessionID", req.SessionID)
		if isParseFailure(err) {
			writeJSONResponse(w, http.StatusBadGateway, models.Error("Protocol generation failed, please try again"))
			return
		}
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Protocol generation failed, please try again"))
		return
	}

	// An onboarding session that was ready is now complete.
	if state, stateErr := s.onboarding.GetState(r.Context(), req.SessionID); stateErr == nil && state.Step == models.StepReady {
		if err := s.onboarding.CompleteSession(r.Context(), req.SessionID); err != nil {
			slog.Warn("Server.generateHandler: failed to mark session complete", "error", err, "sessionID", req.SessionID)
		}
	}

	writeJSONResponse(w, http.StatusOK, models.Success(protocol))
}

// isParseFailure reports whether the generation error came from tolerant
// parsing giving up on the model output, as opposed to an infrastructure
// failure.
func isParseFailure(err error) bool {
	return errors.Is(err, flow.ErrNoJSONFound) ||
		errors.Is(err, flow.ErrUnbalancedJSON) ||
		errors.Is(err, flow.ErrInvalidJSON) ||
		errors.Is(err, flow.ErrNotAnObject)
}

func (s *Server) protocolsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.protocolsHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptySessionID.Error()))
		return
	}

	protocols, err := s.st.GetProtocols(sessionID)
	if err != nil {
		slog.Error("Server.protocolsHandler: query failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load protocols"))
		return
	}
	if protocols == nil {
		protocols = []models.Protocol{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(protocols))
}

func (s *Server) usageHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.usageHandler: processing request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	day := r.URL.Query().Get("day")
	if day == "" {
		day = time.Now().Format(flow.UsageDayFormat)
	}

	calls, err := s.st.GetDailyUsage(day)
	if err != nil {
		slog.Error("Server.usageHandler: query failed", "error", err, "day", day)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load usage"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(struct {
		Day        string `json:"day"`
		ModelCalls int    `json:"model_calls"`
	}{Day: day, ModelCalls: calls}))
}
