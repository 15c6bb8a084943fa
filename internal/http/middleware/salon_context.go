package middleware

import (
	"net/http"

	"github.com/laviebeauty/lavie-platform/internal/tenancy"
)

// SalonHeader is the tenant header every /api request must carry.
const SalonHeader = "X-Salon-Id"

// RequireSalonID extracts the tenant id from the request header and places
// it on the context. Requests without one are rejected before any handler
// touches tenant data.
func RequireSalonID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		salonID := r.Header.Get(SalonHeader)
		if salonID == "" {
			http.Error(w, "missing "+SalonHeader+" header", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithSalonID(r.Context(), salonID)))
	})
}
