package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/internal/tenancy"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Resolver abstracts the scheduling service for handler tests.
type Resolver interface {
	Resolve(ctx context.Context, salonID, professionalID, serviceID, date string) (*Availability, error)
}

// Handler exposes the availability endpoint for the booking flow.
type Handler struct {
	resolver Resolver
	logger   *logging.Logger
}

func NewHandler(resolver Resolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

type availabilityRequest struct {
	ProfessionalID string `json:"professionalId"`
	ServiceID      string `json:"serviceId"`
	Date           string `json:"date"`
}

// Availability handles POST /api/availability.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProfessionalID == "" || req.ServiceID == "" || req.Date == "" {
		http.Error(w, "professionalId, serviceId and date are required", http.StatusBadRequest)
		return
	}

	avail, err := h.resolver.Resolve(r.Context(), salonID, req.ProfessionalID, req.ServiceID, req.Date)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound):
			http.Error(w, "service not found", http.StatusNotFound)
		case errors.Is(err, catalog.ErrProfessionalNotFound):
			http.Error(w, "professional not found", http.StatusNotFound)
		default:
			h.logger.Error("availability resolution failed", "error", err, "salon_id", salonID, "date", req.Date)
			http.Error(w, "failed to resolve availability", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(avail)
}
