package assistant

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/laviebeauty/lavie-platform/internal/tenancy"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Chatter abstracts the assistant service for handler tests.
type Chatter interface {
	Chat(ctx context.Context, salonID string, req *ChatRequest) (*ChatResponse, error)
}

type Handler struct {
	svc    Chatter
	logger *logging.Logger
}

func NewHandler(svc Chatter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}

	resp, err := h.svc.Chat(r.Context(), salonID, &req)
	if err != nil {
		h.logger.Error("chat turn failed", "error", err, "salon_id", salonID)
		http.Error(w, "assistant unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
