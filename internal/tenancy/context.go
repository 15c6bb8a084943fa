package tenancy

import "context"

type ctxKey string

const salonKey ctxKey = "lavie.salon_id"

// WithSalonID stores the salon id in context.
func WithSalonID(ctx context.Context, salonID string) context.Context {
	return context.WithValue(ctx, salonKey, salonID)
}

// SalonIDFromContext extracts the salon id if present.
func SalonIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(salonKey)
	if val == nil {
		return "", false
	}
	salonID, ok := val.(string)
	return salonID, ok && salonID != ""
}
