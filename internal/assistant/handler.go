package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"eventplanner/internal/chat"
	appLog "eventplanner/internal/log"
)

// Completion produces a reply for a prompt. *Completer implements it.
type Completion interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Handler serves POST /chat.
type Handler struct {
	completion Completion
	model      string
}

func NewHandler(c Completion, model string) *Handler {
	return &Handler{completion: c, model: model}
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, detailResponse{Detail: "Method Not Allowed"})
		return
	}

	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: "invalid request body: " + err.Error()})
		return
	}

	reply, err := h.completion.Complete(r.Context(), BuildPrompt(req.Message, req.Events))
	if err != nil {
		status, detail := h.classify(err)
		appLog.Error("assistant: completion failed", err, "status", status, "model", h.model)
		writeJSON(w, status, detailResponse{Detail: detail})
		return
	}

	appLog.Info("assistant: replied", "events", len(req.Events), "chars", len(reply))
	writeJSON(w, http.StatusOK, chat.Response{Reply: reply})
}

// classify maps a completion error onto the status the chat client sees.
func (h *Handler) classify(err error) (int, string) {
	if errors.Is(err, ErrNoAPIKey) {
		return http.StatusInternalServerError, "OpenRouter API key not configured."
	}

	msg, status := err.Error(), 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		msg, status = apiErr.Message, apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
	}
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "authentication") || status == http.StatusUnauthorized:
		return http.StatusUnauthorized, "OpenRouter authentication error: " + msg
	case strings.Contains(lower, "rate limit") || status == http.StatusTooManyRequests:
		return http.StatusTooManyRequests, "OpenRouter rate limit exceeded: " + msg
	case strings.Contains(lower, "not found") && strings.Contains(lower, "model"):
		return http.StatusNotFound, "Model '" + h.model + "' not found or not accessible on OpenRouter: " + msg
	default:
		return http.StatusServiceUnavailable, "Error communicating with OpenRouter: " + msg
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("assistant: failed to write JSON response", err)
	}
}
