// Package crm is the REST client for the Zoho CRM v2 API. It is a
// plain authenticated caller: token acquisition lives in auth/token, and
// callers hand in the access token they got from the manager.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultCRMBaseURL is the Zoho CRM API host for the US data center.
const DefaultCRMBaseURL = "https://www.zohoapis.com"

// leadsPerPage matches the original bot: latest five leads per listing.
const leadsPerPage = 5

// CRMClient makes authenticated calls against the Zoho CRM v2 API.
type CRMClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCRMClient creates a CRM client. baseURL is overridable for tests.
func NewCRMClient(baseURL string) *CRMClient {
	if baseURL == "" {
		baseURL = DefaultCRMBaseURL
	}
	return &CRMClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Lead is the subset of CRM lead fields the bot shows.
type Lead struct {
	FirstName string `json:"First_Name"`
	LastName  string `json:"Last_Name"`
	Email     string `json:"Email"`
	Phone     string `json:"Phone"`
	Company   string `json:"Company"`
}

// FullName combines first and last name, with a placeholder for leads
// that carry neither.
func (l Lead) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(l.FirstName) + " " + strings.TrimSpace(l.LastName))
	if name == "" {
		return "Unnamed Lead"
	}
	return name
}

// APIError carries a failed CRM call's status and Zoho error payload so
// handlers can word replies by class (401/403 reconnect, 429 retry).
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("zoho crm: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("zoho crm: status %d", e.StatusCode)
}

// ListLeads fetches the most recently created leads.
func (c *CRMClient) ListLeads(ctx context.Context, accessToken string) ([]Lead, error) {
	query := url.Values{}
	query.Set("sort_by", "Created_Time")
	query.Set("sort_order", "desc")
	query.Set("per_page", fmt.Sprint(leadsPerPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crm/v2/Leads?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	c.authorize(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer resp.Body.Close()

	// 204 means the CRM has no leads at all.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var body struct {
		Data []Lead `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("list leads: decode response: %w", err)
	}
	return body.Data, nil
}

// CreateLead creates a lead sourced from Telegram. Zoho answers 201 on
// success.
func (c *CRMClient) CreateLead(ctx context.Context, accessToken, firstName, email string) error {
	payload := map[string]interface{}{
		"data": []map[string]string{{
			"First_Name":  firstName,
			"Email":       email,
			"Lead_Source": "Telegram",
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("create lead: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/crm/v2/Leads", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	c.authorize(req, accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return c.apiError(resp)
	}
	return nil
}

// GetOrg fetches the organization name, used by /status as a live check
// that the stored token actually works.
func (c *CRMClient) GetOrg(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crm/v2/org", nil)
	if err != nil {
		return "", fmt.Errorf("get org: %w", err)
	}
	c.authorize(req, accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get org: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.apiError(resp)
	}

	var body struct {
		Org []struct {
			CompanyName string `json:"company_name"`
		} `json:"org"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("get org: decode response: %w", err)
	}
	if len(body.Org) == 0 {
		return "", nil
	}
	return body.Org[0].CompanyName, nil
}

func (c *CRMClient) authorize(req *http.Request, accessToken string) {
	req.Header.Set("Authorization", "Zoho-oauthtoken "+strings.TrimSpace(accessToken))
}

func (c *CRMClient) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err == nil && len(raw) > 0 {
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}
