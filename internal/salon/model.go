package salon

import (
	"errors"
	"time"
)

// Subscription plans, in ascending order of entitlement.
const (
	PlanFree    = "free"
	PlanPro     = "pro"
	PlanPremium = "premium"
)

// ErrNotFound is returned when no salon matches the lookup.
var ErrNotFound = errors.New("salon: not found")

// Salon is one tenant of the platform.
type Salon struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	OwnerEmail      string    `json:"ownerEmail"`
	Plan            string    `json:"plan"`
	AsaasCustomerID string    `json:"asaasCustomerId,omitempty"`
	Timezone        string    `json:"timezone"`
	CreatedAt       time.Time `json:"createdAt"`
}
