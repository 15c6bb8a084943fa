package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// AsaasClient is a thin REST client for the Asaas billing API. Asaas ships
// no Go SDK; the surface here covers exactly what checkout needs.
type AsaasClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAsaasClient(baseURL, apiKey string) *AsaasClient {
	if baseURL == "" {
		baseURL = "https://www.asaas.com/api/v3"
	}
	return &AsaasClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AsaasCustomer is the subset of the customer resource we read.
type AsaasCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AsaasSubscription is the subset of the subscription resource we read.
type AsaasSubscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AsaasPayment is the subset of the payment resource we read.
type AsaasPayment struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoiceUrl"`
}

// FindCustomerByEmail returns the first customer with the email, or nil.
func (c *AsaasClient) FindCustomerByEmail(ctx context.Context, email string) (*AsaasCustomer, error) {
	var out struct {
		Data []AsaasCustomer `json:"data"`
	}
	q := url.Values{"email": {email}}
	if err := c.do(ctx, http.MethodGet, "/customers?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

// CustomerInput carries the fields Asaas accepts on customer writes.
type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	CPFCNPJ string `json:"cpfCnpj,omitempty"`
	Phone   string `json:"mobilePhone,omitempty"`
}

// CreateCustomer registers the salon owner as an Asaas customer.
func (c *AsaasClient) CreateCustomer(ctx context.Context, in CustomerInput) (*AsaasCustomer, error) {
	var out AsaasCustomer
	if err := c.do(ctx, http.MethodPost, "/customers", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCustomer refreshes CPF and phone on an existing customer so the
// invoice carries current billing data.
func (c *AsaasClient) UpdateCustomer(ctx context.Context, id string, in CustomerInput) error {
	return c.do(ctx, http.MethodPut, "/customers/"+id, in, nil)
}

// CreateSubscription opens a monthly subscription for the customer. The
// externalReference ties webhook deliveries back to the salon.
func (c *AsaasClient) CreateSubscription(ctx context.Context, customerID string, value float64, description, externalReference string) (*AsaasSubscription, error) {
	var out AsaasSubscription
	err := c.do(ctx, http.MethodPost, "/subscriptions", map[string]any{
		"customer":          customerID,
		"billingType":       "UNDEFINED",
		"value":             value,
		"nextDueDate":       time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"cycle":             "MONTHLY",
		"description":       description,
		"externalReference": externalReference,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FirstPayment fetches the subscription's opening charge so checkout can hand
// the customer its hosted invoice URL.
func (c *AsaasClient) FirstPayment(ctx context.Context, subscriptionID string) (*AsaasPayment, error) {
	var out struct {
		Data []AsaasPayment `json:"data"`
	}
	q := url.Values{"subscription": {subscriptionID}, "limit": {"1"}}
	if err := c.do(ctx, http.MethodGet, "/payments?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

func (c *AsaasClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("billing: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("billing: build request: %w", err)
	}
	req.Header.Set("access_token", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing: asaas request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("billing: asaas returned %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("billing: parse response: %w", err)
	}
	return nil
}
