package billing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

type memProcessed struct {
	seen map[string]bool
	err  error
}

func (m *memProcessed) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.seen[provider+":"+eventID], nil
}

func (m *memProcessed) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	key := provider + ":" + eventID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type memSalons struct {
	salon       *salon.Salon
	planUpdates []string
	updateErr   error // consumed by the next UpdatePlan call
}

func (m *memSalons) Get(ctx context.Context, id string) (*salon.Salon, error) {
	if m.salon != nil && m.salon.ID == id {
		return m.salon, nil
	}
	return nil, salon.ErrNotFound
}

func (m *memSalons) GetByAsaasCustomer(ctx context.Context, customerID string) (*salon.Salon, error) {
	if m.salon != nil && m.salon.AsaasCustomerID == customerID {
		return m.salon, nil
	}
	return nil, salon.ErrNotFound
}

func (m *memSalons) UpdatePlan(ctx context.Context, id, plan string) error {
	if m.updateErr != nil {
		err := m.updateErr
		m.updateErr = nil
		return err
	}
	m.planUpdates = append(m.planUpdates, plan)
	m.salon.Plan = plan
	return nil
}

func newWebhookHandler(salons *memSalons, processed *memProcessed) *WebhookHandler {
	return NewWebhookHandler(salons, processed, "LAVIE_", nil, logging.New("error"))
}

func deliver(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/asaas", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func paymentBody(event, paymentID, ref string, value float64) string {
	return fmt.Sprintf(`{"event":%q,"payment":{"id":%q,"customer":"cus_1","value":%.2f,"externalReference":%q}}`,
		event, paymentID, value, ref)
}

func TestWebhookActivatesPlan(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree}}
	h := newWebhookHandler(salons, &memProcessed{})

	rec := deliver(t, h, paymentBody("PAYMENT_RECEIVED", "pay_1", "LAVIE_salon-1", 49.90))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if salons.salon.Plan != salon.PlanPro {
		t.Fatalf("plan = %q, want pro", salons.salon.Plan)
	}
}

func TestWebhookGlamourValueGetsPremium(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree}}
	h := newWebhookHandler(salons, &memProcessed{})

	deliver(t, h, paymentBody("PAYMENT_CONFIRMED", "pay_1", "LAVIE_salon-1", 89.90))
	if salons.salon.Plan != salon.PlanPremium {
		t.Fatalf("plan = %q, want premium", salons.salon.Plan)
	}
}

func TestWebhookReplayProcessedOnce(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree}}
	h := newWebhookHandler(salons, &memProcessed{})

	body := paymentBody("PAYMENT_RECEIVED", "pay_1", "LAVIE_salon-1", 49.90)
	for i := 0; i < 3; i++ {
		if rec := deliver(t, h, body); rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, want 200", i, rec.Code)
		}
	}
	if len(salons.planUpdates) != 1 {
		t.Fatalf("expected exactly one plan update, got %d", len(salons.planUpdates))
	}
}

func TestWebhookIgnoresForeignReference(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree}}
	h := newWebhookHandler(salons, &memProcessed{})

	rec := deliver(t, h, paymentBody("PAYMENT_RECEIVED", "pay_1", "OTHERAPP_123", 49.90))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(salons.planUpdates) != 0 {
		t.Fatal("foreign reference must not update any plan")
	}
}

func TestWebhookIgnoresNonPaymentEvents(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree}}
	h := newWebhookHandler(salons, &memProcessed{})

	deliver(t, h, paymentBody("PAYMENT_OVERDUE", "pay_1", "LAVIE_salon-1", 49.90))
	if len(salons.planUpdates) != 0 {
		t.Fatal("overdue payment must not update any plan")
	}
}

func TestWebhookBelowThresholdKeepsPlan(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree}}
	h := newWebhookHandler(salons, &memProcessed{})

	deliver(t, h, paymentBody("PAYMENT_RECEIVED", "pay_1", "LAVIE_salon-1", 10.00))
	if salons.salon.Plan != salon.PlanFree {
		t.Fatalf("plan = %q, want free", salons.salon.Plan)
	}
}

func TestWebhookFallsBackToCustomerLookup(t *testing.T) {
	// The reference carries our prefix but the salon id inside it is stale;
	// the Asaas customer id still resolves the tenant.
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree, AsaasCustomerID: "cus_1"}}
	h := newWebhookHandler(salons, &memProcessed{})

	deliver(t, h, paymentBody("PAYMENT_RECEIVED", "pay_1", "LAVIE_salon-old", 49.90))
	if salons.salon.Plan != salon.PlanPro {
		t.Fatalf("plan = %q, want pro via customer fallback", salons.salon.Plan)
	}
}

func TestWebhookIgnoresPaymentWithoutReference(t *testing.T) {
	// A payment with no external reference was not created by us, even when
	// its customer id happens to match a salon.
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree, AsaasCustomerID: "cus_1"}}
	h := newWebhookHandler(salons, &memProcessed{})

	rec := deliver(t, h, paymentBody("PAYMENT_RECEIVED", "pay_1", "", 49.90))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(salons.planUpdates) != 0 {
		t.Fatal("payment without external reference must not update any plan")
	}
	if salons.salon.Plan != salon.PlanFree {
		t.Fatalf("plan = %q, want free", salons.salon.Plan)
	}
}

func TestWebhookRedeliveryAfterTransientFailure(t *testing.T) {
	// The payment id must not be consumed when writing the entitlement
	// fails, so the provider's redelivery can still apply it.
	salons := &memSalons{
		salon:     &salon.Salon{ID: "salon-1", Plan: salon.PlanFree},
		updateErr: fmt.Errorf("connection reset"),
	}
	processed := &memProcessed{}
	h := newWebhookHandler(salons, processed)

	body := paymentBody("PAYMENT_RECEIVED", "pay_1", "LAVIE_salon-1", 49.90)
	deliver(t, h, body)
	if salons.salon.Plan != salon.PlanFree {
		t.Fatalf("after failed delivery plan = %q, want free", salons.salon.Plan)
	}

	deliver(t, h, body)
	if salons.salon.Plan != salon.PlanPro {
		t.Fatalf("after redelivery plan = %q, want pro", salons.salon.Plan)
	}
	if len(salons.planUpdates) != 1 {
		t.Fatalf("expected exactly one plan update, got %d", len(salons.planUpdates))
	}
}

func TestWebhookMalformedPayloadStill200(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1"}}
	h := newWebhookHandler(salons, &memProcessed{})

	rec := deliver(t, h, "{not json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWebhookIdempotencyStoreErrorStill200(t *testing.T) {
	salons := &memSalons{salon: &salon.Salon{ID: "salon-1", Plan: salon.PlanFree}}
	h := newWebhookHandler(salons, &memProcessed{err: fmt.Errorf("db down")})

	rec := deliver(t, h, paymentBody("PAYMENT_RECEIVED", "pay_1", "LAVIE_salon-1", 49.90))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(salons.planUpdates) != 0 {
		t.Fatal("plan must not change when the payment cannot be claimed")
	}
}
