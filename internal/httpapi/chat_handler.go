package httpapi

import (
	"encoding/json"
	"net/http"

	"immcad-api/internal/domain"
)

type chatRequestBody struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Locale    string `json:"locale"`
	Mode      string `json:"mode"`
}

// handleChat implements POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)

	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apiErrorValidation(traceID, "request body must be valid JSON"))
		return
	}
	if body.Message == "" {
		writeError(w, r, apiErrorValidation(traceID, "message is required"))
		return
	}

	locale := domain.Locale(body.Locale)
	if locale != domain.LocaleFrCA {
		locale = domain.LocaleEnCA
	}

	req := domain.ChatRequest{
		SessionID: body.SessionID,
		Message:   body.Message,
		Locale:    locale,
		Mode:      body.Mode,
	}

	resp := s.Chat.Handle(req, traceID)

	if s.Metrics != nil {
		s.Metrics.RecordChatOutcome(resp.FallbackUsed.Used, resp.FallbackUsed.Reason == domain.FallbackReasonPolicyBlock)
	}

	writeJSON(w, http.StatusOK, resp)
}
