package billing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/laviebeauty/lavie-platform/internal/observability/metrics"
	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

const webhookProvider = "asaas"

// Payment events that grant or renew entitlement. Everything else is logged
// and dropped.
var entitlementEvents = map[string]bool{
	"PAYMENT_RECEIVED":  true,
	"PAYMENT_CONFIRMED": true,
}

// ProcessedSet records webhook payment ids that have been fully applied.
// AlreadyProcessed answers replay checks; MarkProcessed claims the id once
// the entitlement has been written, so a transient failure leaves the id
// free for the provider's redelivery.
type ProcessedSet interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// WebhookSalons is the salon surface the webhook needs.
type WebhookSalons interface {
	Get(ctx context.Context, id string) (*salon.Salon, error)
	GetByAsaasCustomer(ctx context.Context, customerID string) (*salon.Salon, error)
	UpdatePlan(ctx context.Context, id, plan string) error
}

// WebhookHandler processes Asaas payment webhooks.
//
// Every delivery is answered 200 regardless of outcome. Asaas pauses the
// whole webhook queue after repeated non-200 responses, which would stall
// payments for every salon, so failures are logged and absorbed instead.
type WebhookHandler struct {
	salons    WebhookSalons
	processed ProcessedSet
	refPrefix string
	metrics   *metrics.BillingMetrics
	logger    *logging.Logger
}

func NewWebhookHandler(salons WebhookSalons, processed ProcessedSet, refPrefix string, m *metrics.BillingMetrics, logger *logging.Logger) *WebhookHandler {
	if salons == nil {
		panic("billing: salon store cannot be nil")
	}
	if processed == nil {
		panic("billing: processed set cannot be nil")
	}
	if refPrefix == "" {
		refPrefix = "LAVIE_"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{salons: salons, processed: processed, refPrefix: refPrefix, metrics: m, logger: logger}
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payment struct {
		ID                string  `json:"id"`
		Customer          string  `json:"customer"`
		Value             float64 `json:"value"`
		ExternalReference string  `json:"externalReference"`
		Subscription      string  `json:"subscription"`
	} `json:"payment"`
}

// Handle processes POST /webhooks/asaas.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer func() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Error("webhook body unreadable", "error", err)
		h.metrics.ObserveWebhook("unknown", "unreadable")
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Error("webhook payload invalid", "error", err)
		h.metrics.ObserveWebhook("unknown", "invalid")
		return
	}
	defer func() {
		h.metrics.ObserveWebhookLatency(payload.Event, time.Since(started).Seconds())
	}()

	if !entitlementEvents[payload.Event] {
		h.logger.Info("webhook event ignored", "event", payload.Event)
		h.metrics.ObserveWebhook(payload.Event, "ignored")
		return
	}
	if payload.Payment.ID == "" {
		h.logger.Error("webhook payment missing id", "event", payload.Event)
		h.metrics.ObserveWebhook(payload.Event, "invalid")
		return
	}

	done, err := h.processed.AlreadyProcessed(r.Context(), webhookProvider, payload.Payment.ID)
	if err != nil {
		h.logger.Error("cannot check webhook payment", "payment_id", payload.Payment.ID, "error", err)
		h.metrics.ObserveWebhook(payload.Event, "error")
		return
	}
	if done {
		h.logger.Info("webhook replay skipped", "payment_id", payload.Payment.ID)
		h.metrics.ObserveDuplicate()
		h.metrics.ObserveWebhook(payload.Event, "duplicate")
		return
	}

	sal := h.resolveSalon(r.Context(), payload)
	if sal == nil {
		h.metrics.ObserveWebhook(payload.Event, "unmatched")
		return
	}

	plan, ok := PlanForValue(payload.Payment.Value)
	if !ok {
		h.logger.Warn("payment below any plan threshold",
			"payment_id", payload.Payment.ID, "value", payload.Payment.Value, "salon_id", sal.ID)
		h.metrics.ObserveWebhook(payload.Event, "below_threshold")
		return
	}

	if err := h.salons.UpdatePlan(r.Context(), sal.ID, plan); err != nil {
		h.logger.Error("cannot update plan", "salon_id", sal.ID, "plan", plan, "error", err)
		h.metrics.ObserveWebhook(payload.Event, "error")
		return
	}

	// Claim the id only after the entitlement is written. If the claim fails
	// the redelivery re-runs UpdatePlan, which is idempotent.
	if claimed, err := h.processed.MarkProcessed(r.Context(), webhookProvider, payload.Payment.ID); err != nil {
		h.logger.Warn("cannot record processed payment", "payment_id", payload.Payment.ID, "error", err)
	} else if !claimed {
		h.metrics.ObserveDuplicate()
	}

	h.logger.Info("plan activated",
		"salon_id", sal.ID, "plan", plan,
		"payment_id", payload.Payment.ID, "value", payload.Payment.Value)
	h.metrics.ObserveWebhook(payload.Event, "processed")
}

// resolveSalon maps the payment to a tenant. Only payments carrying our
// reference prefix belong to us: payments without a reference, or with a
// foreign one, are ignored. The customer id is a fallback for the case where
// the reference carries our prefix but the salon id inside it no longer
// resolves, such as a salon recreated after a support intervention.
func (h *WebhookHandler) resolveSalon(ctx context.Context, payload webhookPayload) *salon.Salon {
	ref := payload.Payment.ExternalReference
	if ref == "" {
		h.logger.Info("webhook without external reference ignored", "payment_id", payload.Payment.ID)
		return nil
	}
	if !strings.HasPrefix(ref, h.refPrefix) {
		h.logger.Info("webhook for foreign reference ignored", "external_reference", ref)
		return nil
	}

	sal, err := h.salons.Get(ctx, strings.TrimPrefix(ref, h.refPrefix))
	if err == nil {
		return sal
	}
	h.logger.Warn("external reference does not match a salon",
		"external_reference", ref, "error", err)

	if payload.Payment.Customer != "" {
		sal, err = h.salons.GetByAsaasCustomer(ctx, payload.Payment.Customer)
		if err == nil {
			return sal
		}
		h.logger.Warn("customer id does not match a salon",
			"customer", payload.Payment.Customer, "error", err)
	}
	return nil
}
