package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/laviebeauty/lavie-platform/internal/tenancy"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Store abstracts the repository for handler tests.
type Store interface {
	CreateService(ctx context.Context, salonID string, req *CreateServiceRequest) (*Service, error)
	GetService(ctx context.Context, salonID, id string) (*Service, error)
	ListServices(ctx context.Context, salonID string) ([]Service, error)
	DeleteService(ctx context.Context, salonID, id string) error
	CreateProfessional(ctx context.Context, salonID string, req *CreateProfessionalRequest) (*Professional, error)
	GetProfessional(ctx context.Context, salonID, id string) (*Professional, error)
	ListProfessionals(ctx context.Context, salonID string) ([]Professional, error)
	DeleteProfessional(ctx context.Context, salonID, id string) error
}

// Handler exposes catalog CRUD for the admin panel plus public read endpoints
// for the booking flow.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ListServices handles GET /api/services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	services, err := h.store.ListServices(r.Context(), salonID)
	if err != nil {
		h.logger.Error("failed to list services", "error", err, "salon_id", salonID)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services, "count": len(services)})
}

// CreateService handles POST /admin/services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	var req CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	svc, err := h.store.CreateService(r.Context(), salonID, &req)
	if err != nil {
		h.logger.Error("failed to create service", "error", err, "salon_id", salonID)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("service created", "salon_id", salonID, "service_id", svc.ID, "name", svc.Name)
	writeJSON(w, http.StatusCreated, svc)
}

// DeleteService handles DELETE /admin/services/{serviceID}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "serviceID")
	if err := h.store.DeleteService(r.Context(), salonID, id); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete service", "error", err, "salon_id", salonID, "service_id", id)
		http.Error(w, "failed to delete service", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProfessionals handles GET /api/professionals.
func (h *Handler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	pros, err := h.store.ListProfessionals(r.Context(), salonID)
	if err != nil {
		h.logger.Error("failed to list professionals", "error", err, "salon_id", salonID)
		http.Error(w, "failed to list professionals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"professionals": pros, "count": len(pros)})
}

// CreateProfessional handles POST /admin/professionals.
func (h *Handler) CreateProfessional(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	var req CreateProfessionalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	pro, err := h.store.CreateProfessional(r.Context(), salonID, &req)
	if err != nil {
		h.logger.Error("failed to create professional", "error", err, "salon_id", salonID)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("professional created", "salon_id", salonID, "professional_id", pro.ID, "name", pro.Name)
	writeJSON(w, http.StatusCreated, pro)
}

// DeleteProfessional handles DELETE /admin/professionals/{professionalID}.
func (h *Handler) DeleteProfessional(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "professionalID")
	if err := h.store.DeleteProfessional(r.Context(), salonID, id); err != nil {
		if errors.Is(err, ErrProfessionalNotFound) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete professional", "error", err, "salon_id", salonID, "professional_id", id)
		http.Error(w, "failed to delete professional", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
