// Package zoho describes the Zoho Accounts OAuth2 surface. Every user
// brings their own self-client, so configs are built per credential set
// rather than from application-wide settings.
package zoho

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultAccountsBaseURL is the Zoho Accounts host for the US data
	// center. Overridable for tests and other data centers.
	DefaultAccountsBaseURL = "https://accounts.zoho.com"

	// RedirectURI is the fixed redirect Zoho expects for self-client
	// authorization codes generated in the API console.
	RedirectURI = "https://www.zoho.com/crm"

	// requestTimeout bounds every token endpoint call.
	requestTimeout = 15 * time.Second
)

// Endpoint returns the OAuth2 endpoint description for a Zoho Accounts
// host. Zoho wants client credentials in the form body, not basic auth.
func Endpoint(accountsBaseURL string) oauth2.Endpoint {
	if accountsBaseURL == "" {
		accountsBaseURL = DefaultAccountsBaseURL
	}
	base := strings.TrimSuffix(accountsBaseURL, "/")
	return oauth2.Endpoint{
		AuthURL:   base + "/oauth/v2/auth",
		TokenURL:  base + "/oauth/v2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// NewConfig builds an OAuth2 config for one user's self-client.
func NewConfig(accountsBaseURL, clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  RedirectURI,
		Endpoint:     Endpoint(accountsBaseURL),
	}
}

// WithHTTPClient injects a fixed-timeout HTTP client into the context so
// the oauth2 transport cannot hang on a wedged provider.
func WithHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: requestTimeout})
}

// ExchangeCode performs the authorization-code grant for a self-client.
func ExchangeCode(ctx context.Context, accountsBaseURL, clientID, clientSecret, code string) (*oauth2.Token, error) {
	config := NewConfig(accountsBaseURL, clientID, clientSecret)
	return config.Exchange(WithHTTPClient(ctx), code)
}

// RefreshGrant performs the refresh-token grant and returns the newly
// minted token. The oauth2 package computes Expiry from expires_in.
func RefreshGrant(ctx context.Context, accountsBaseURL, clientID, clientSecret, refreshToken string) (*oauth2.Token, error) {
	config := NewConfig(accountsBaseURL, clientID, clientSecret)
	source := config.TokenSource(WithHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	return source.Token()
}

// ErrorDetail extracts the provider's raw error payload from a failed
// token endpoint call, for diagnostics. Falls back to the error string.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && len(retrieveErr.Body) > 0 {
		return strings.TrimSpace(string(retrieveErr.Body))
	}
	return err.Error()
}
