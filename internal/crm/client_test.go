package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListLeads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v2/Leads" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Zoho-oauthtoken tok-123" {
			t.Errorf("authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("sort_by") != "Created_Time" || q.Get("sort_order") != "desc" || q.Get("per_page") != "5" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"First_Name": "Ada", "Last_Name": "Lovelace", "Email": "ada@example.com", "Company": "Analytical"},
				{"Phone": "555-0100"},
			},
		})
	}))
	defer server.Close()

	client := NewCRMClient(server.URL)
	leads, err := client.ListLeads(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("lead count = %d", len(leads))
	}
	if leads[0].FullName() != "Ada Lovelace" {
		t.Errorf("full name = %q", leads[0].FullName())
	}
	if leads[1].FullName() != "Unnamed Lead" {
		t.Errorf("nameless lead = %q", leads[1].FullName())
	}
}

func TestListLeads_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewCRMClient(server.URL)
	leads, err := client.ListLeads(context.Background(), "tok")
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if leads != nil {
		t.Fatalf("expected no leads, got %v", leads)
	}
}

func TestListLeads_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "INVALID_TOKEN",
			"message": "invalid oauth token to access protected resource",
		})
	}))
	defer server.Close()

	client := NewCRMClient(server.URL)
	_, err := client.ListLeads(context.Background(), "bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != "INVALID_TOKEN" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestCreateLead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		var body struct {
			Data []map[string]string `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body.Data) != 1 {
			t.Fatalf("data rows = %d", len(body.Data))
		}
		row := body.Data[0]
		if row["First_Name"] != "Grace" || row["Email"] != "grace@example.com" || row["Lead_Source"] != "Telegram" {
			t.Errorf("lead payload = %v", row)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewCRMClient(server.URL)
	if err := client.CreateLead(context.Background(), "tok", "Grace", "grace@example.com"); err != nil {
		t.Fatalf("create lead: %v", err)
	}
}

func TestCreateLead_NonCreatedStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewCRMClient(server.URL)
	err := client.CreateLead(context.Background(), "tok", "Grace", "grace@example.com")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
}

func TestGetOrg(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crm/v2/org" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"org": []map[string]string{{"company_name": "Acme Corp"}},
		})
	}))
	defer server.Close()

	client := NewCRMClient(server.URL)
	name, err := client.GetOrg(context.Background(), "tok")
	if err != nil {
		t.Fatalf("get org: %v", err)
	}
	if name != "Acme Corp" {
		t.Fatalf("org = %q", name)
	}
}
