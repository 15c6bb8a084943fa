package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// fakeAsaas stands in for the Asaas API during checkout tests.
func fakeAsaas(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("access_token") != "key-test" {
			t.Errorf("missing access_token header on %s", r.URL.Path)
		}
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/customers":
			if r.URL.Query().Get("email") == "known@lavie.example" {
				_, _ = w.Write([]byte(`{"data":[{"id":"cus_known","email":"known@lavie.example"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":[]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/customers":
			_, _ = w.Write([]byte(`{"id":"cus_new"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/customers/cus_known":
			_, _ = w.Write([]byte(`{"id":"cus_known"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/subscriptions":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if ref, _ := body["externalReference"].(string); ref != "LAVIE_salon-1" {
				t.Errorf("externalReference = %v, want LAVIE_salon-1", body["externalReference"])
			}
			_, _ = w.Write([]byte(`{"id":"sub_1","status":"ACTIVE"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/payments":
			_, _ = w.Write([]byte(`{"data":[{"id":"pay_1","invoiceUrl":"https://asaas.example/i/pay_1"}]}`))
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

type checkoutSalons struct {
	salon      *salon.Salon
	customerID string
}

func (s *checkoutSalons) Get(ctx context.Context, id string) (*salon.Salon, error) {
	return s.salon, nil
}

func (s *checkoutSalons) SetAsaasCustomerID(ctx context.Context, id, customerID string) error {
	s.customerID = customerID
	return nil
}

func TestCheckoutCreatesCustomerAndSubscription(t *testing.T) {
	srv, calls := fakeAsaas(t)
	client := NewAsaasClient(srv.URL, "key-test")
	salons := &checkoutSalons{salon: &salon.Salon{ID: "salon-1", Name: "La Vie", OwnerEmail: "nova@lavie.example"}}
	svc := NewCheckoutService(client, salons, CheckoutConfig{}, logging.New("error"))

	result, err := svc.Checkout(context.Background(), "salon-1", CheckoutRequest{Plan: CheckoutPlanShine, CPFCNPJ: "12345678900"})
	if err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if result.SubscriptionID != "sub_1" {
		t.Fatalf("subscription = %q, want sub_1", result.SubscriptionID)
	}
	if result.InvoiceURL != "https://asaas.example/i/pay_1" {
		t.Fatalf("invoiceUrl = %q", result.InvoiceURL)
	}
	if salons.customerID != "cus_new" {
		t.Fatalf("expected new customer linked to salon, got %q", salons.customerID)
	}
	want := []string{"GET /customers", "POST /customers", "POST /subscriptions", "GET /payments"}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v, want %v", *calls, want)
	}
}

func TestCheckoutReusesExistingCustomer(t *testing.T) {
	srv, calls := fakeAsaas(t)
	client := NewAsaasClient(srv.URL, "key-test")
	salons := &checkoutSalons{salon: &salon.Salon{ID: "salon-1", OwnerEmail: "known@lavie.example", AsaasCustomerID: "cus_known"}}
	svc := NewCheckoutService(client, salons, CheckoutConfig{}, logging.New("error"))

	if _, err := svc.Checkout(context.Background(), "salon-1", CheckoutRequest{Plan: CheckoutPlanGlamour, Phone: "11988887777"}); err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	updated := false
	for _, call := range *calls {
		if call == "POST /customers" {
			t.Fatal("linked salon must not create a second Asaas customer")
		}
		if call == "PUT /customers/cus_known" {
			updated = true
		}
	}
	if !updated {
		t.Fatal("expected billing details refresh on the existing customer")
	}
}

func TestCheckoutRejectsUnknownPlan(t *testing.T) {
	client := NewAsaasClient("http://asaas.invalid", "key-test")
	salons := &checkoutSalons{salon: &salon.Salon{ID: "salon-1"}}
	svc := NewCheckoutService(client, salons, CheckoutConfig{}, logging.New("error"))

	if _, err := svc.Checkout(context.Background(), "salon-1", CheckoutRequest{Plan: "diamond"}); err == nil {
		t.Fatal("expected error for unknown plan")
	}
}

func TestAsaasClientFindCustomerByEmailNotFound(t *testing.T) {
	srv, _ := fakeAsaas(t)
	client := NewAsaasClient(srv.URL, "key-test")

	customer, err := client.FindCustomerByEmail(context.Background(), "missing@lavie.example")
	if err != nil {
		t.Fatalf("FindCustomerByEmail returned error: %v", err)
	}
	if customer != nil {
		t.Fatalf("expected nil customer, got %+v", customer)
	}
}
