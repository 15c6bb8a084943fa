package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/internal/tenancy"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Plans the checkout sells, keyed by the names the frontend sends.
const (
	CheckoutPlanShine   = "shine"
	CheckoutPlanGlamour = "glamour"
)

// SalonStore is the salon surface checkout needs.
type SalonStore interface {
	Get(ctx context.Context, id string) (*salon.Salon, error)
	SetAsaasCustomerID(ctx context.Context, id, customerID string) error
}

// CheckoutConfig carries the plan prices and the external reference prefix.
type CheckoutConfig struct {
	ShineValue   float64
	GlamourValue float64
	RefPrefix    string
}

// CheckoutService opens Asaas subscriptions for salon plan upgrades.
type CheckoutService struct {
	asaas  *AsaasClient
	salons SalonStore
	cfg    CheckoutConfig
	logger *logging.Logger
}

func NewCheckoutService(asaas *AsaasClient, salons SalonStore, cfg CheckoutConfig, logger *logging.Logger) *CheckoutService {
	if asaas == nil {
		panic("billing: asaas client cannot be nil")
	}
	if salons == nil {
		panic("billing: salon store cannot be nil")
	}
	if cfg.ShineValue == 0 {
		cfg.ShineValue = 49.90
	}
	if cfg.GlamourValue == 0 {
		cfg.GlamourValue = 89.90
	}
	if cfg.RefPrefix == "" {
		cfg.RefPrefix = "LAVIE_"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutService{asaas: asaas, salons: salons, cfg: cfg, logger: logger}
}

// CheckoutResult is what the frontend needs to send the owner to Asaas.
type CheckoutResult struct {
	SubscriptionID string `json:"subscriptionId"`
	InvoiceURL     string `json:"invoiceUrl,omitempty"`
}

// CheckoutRequest is the frontend's checkout payload. CPF and phone are
// optional billing details forwarded to the Asaas customer record.
type CheckoutRequest struct {
	Plan    string `json:"plan"`
	CPFCNPJ string `json:"cpfCnpj"`
	Phone   string `json:"phone"`
}

// Checkout ensures the salon has an Asaas customer, then opens the
// subscription for the chosen plan.
func (s *CheckoutService) Checkout(ctx context.Context, salonID string, req CheckoutRequest) (*CheckoutResult, error) {
	var value float64
	var description string
	switch req.Plan {
	case CheckoutPlanShine:
		value = s.cfg.ShineValue
		description = "La Vie Beauty - Plano Shine"
	case CheckoutPlanGlamour:
		value = s.cfg.GlamourValue
		description = "La Vie Beauty - Plano Glamour"
	default:
		return nil, fmt.Errorf("billing: unknown plan %q", req.Plan)
	}

	sal, err := s.salons.Get(ctx, salonID)
	if err != nil {
		return nil, fmt.Errorf("billing: resolve salon: %w", err)
	}

	details := CustomerInput{Name: sal.Name, Email: sal.OwnerEmail, CPFCNPJ: req.CPFCNPJ, Phone: req.Phone}

	customerID := sal.AsaasCustomerID
	created := false
	if customerID == "" {
		customer, err := s.asaas.FindCustomerByEmail(ctx, sal.OwnerEmail)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			customer, err = s.asaas.CreateCustomer(ctx, details)
			if err != nil {
				return nil, err
			}
			created = true
		}
		customerID = customer.ID
		if err := s.salons.SetAsaasCustomerID(ctx, salonID, customerID); err != nil {
			return nil, fmt.Errorf("billing: link asaas customer: %w", err)
		}
	}
	if !created && (req.CPFCNPJ != "" || req.Phone != "") {
		// Stale billing data only degrades the invoice, never the checkout.
		if err := s.asaas.UpdateCustomer(ctx, customerID, details); err != nil {
			s.logger.Warn("cannot update asaas customer", "customer_id", customerID, "error", err)
		}
	}

	sub, err := s.asaas.CreateSubscription(ctx, customerID, value, description, s.cfg.RefPrefix+salonID)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{SubscriptionID: sub.ID}
	if payment, err := s.asaas.FirstPayment(ctx, sub.ID); err != nil {
		// The subscription exists; the invoice link is a convenience.
		s.logger.Warn("cannot fetch opening invoice", "subscription_id", sub.ID, "error", err)
	} else if payment != nil {
		result.InvoiceURL = payment.InvoiceURL
	}

	s.logger.Info("checkout opened", "salon_id", salonID, "plan", req.Plan, "subscription_id", sub.ID)
	return result, nil
}

// CheckoutHandler exposes POST /api/checkout.
type CheckoutHandler struct {
	svc    *CheckoutService
	logger *logging.Logger
}

func NewCheckoutHandler(svc *CheckoutService, logger *logging.Logger) *CheckoutHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CheckoutHandler{svc: svc, logger: logger}
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	salonID, ok := tenancy.SalonIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing salon context", http.StatusBadRequest)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Checkout(r.Context(), salonID, req)
	if err != nil {
		h.logger.Error("checkout failed", "error", err, "salon_id", salonID, "plan", req.Plan)
		http.Error(w, "failed to open checkout", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
