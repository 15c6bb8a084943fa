package catalog

import "testing"

func TestCreateServiceRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateServiceRequest
		wantErr bool
	}{
		{"valid", CreateServiceRequest{Name: "Corte Feminino", DurationMinutes: 60, PriceCents: 12000}, false},
		{"missing name", CreateServiceRequest{DurationMinutes: 60}, true},
		{"zero duration", CreateServiceRequest{Name: "Corte", DurationMinutes: 0}, true},
		{"negative duration", CreateServiceRequest{Name: "Corte", DurationMinutes: -30}, true},
		{"negative price", CreateServiceRequest{Name: "Corte", DurationMinutes: 30, PriceCents: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateProfessionalRequestValidate(t *testing.T) {
	if err := (&CreateProfessionalRequest{Name: "Ana"}).Validate(); err != nil {
		t.Fatalf("expected valid professional, got %v", err)
	}
	if err := (&CreateProfessionalRequest{GoogleCalendarID: "cal@group.calendar.google.com"}).Validate(); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestFindServiceByName(t *testing.T) {
	services := []Service{
		{ID: "s1", Name: "Corte Feminino"},
		{ID: "s2", Name: "Coloração"},
	}

	svc, ok := FindServiceByName(services, "  corte feminino ")
	if !ok || svc.ID != "s1" {
		t.Fatalf("expected case-insensitive match on s1, got %v %v", svc, ok)
	}

	if _, ok := FindServiceByName(services, "Manicure"); ok {
		t.Fatal("expected no match for unknown service")
	}
	if _, ok := FindServiceByName(services, ""); ok {
		t.Fatal("expected no match for empty name")
	}
}
