package driveauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ritasahaa/driveauth/role"
)

// APIClient is the backend surface the validator and manager consume. The
// production implementation is [HTTPClient]; tests substitute fakes.
type APIClient interface {
	// WhoAmI resolves the profile behind token using the role-appropriate
	// identity endpoint. Errors are one of ErrIdentityRejected or
	// ErrIdentityUnavailable (wrapped).
	WhoAmI(ctx context.Context, r role.Role, token string) (*UserProfile, error)
	// Login exchanges credentials for a token and profile. Errors are one of
	// ErrInvalidCredentials, ErrLoginInvalid, or ErrLoginUnavailable.
	Login(ctx context.Context, email, password string) (LoginResult, error)
}

// TokenRefresher is optionally implemented by API clients that expose a
// refresh endpoint. Its absence is not an error; the renewal step is a
// best-effort optimization.
type TokenRefresher interface {
	Refresh(ctx context.Context, token string) (string, error)
}

// LoginResult is a successful credential exchange.
type LoginResult struct {
	Token   string
	Profile UserProfile
}

// HTTPClient talks to the backend REST API with a bounded per-call timeout.
// A timed-out call is reported as ErrIdentityUnavailable / ErrLoginUnavailable,
// identically to any other transport failure.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the API at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type whoAmIResponse struct {
	Success bool         `json:"success"`
	User    *UserProfile `json:"user"`
	Message string       `json:"message,omitempty"`
}

// WhoAmI implements [APIClient]. The endpoint is keyed on the decoded role:
// admin variants hit /api/admin/me, everyone else /api/auth/me.
func (c *HTTPClient) WhoAmI(ctx context.Context, r role.Role, token string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+r.WhoAmIPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrIdentityRejected, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrIdentityUnavailable, resp.StatusCode)
	}

	var body whoAmIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}
	if !body.Success || body.User == nil {
		return nil, fmt.Errorf("%w: no profile in response", ErrIdentityRejected)
	}
	return body.User, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *UserProfile `json:"user"`
	Message string       `json:"message,omitempty"`
}

// Login implements [APIClient].
func (c *HTTPClient) Login(ctx context.Context, email, password string) (LoginResult, error) {
	payload, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return LoginResult{}, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return LoginResult{}, fmt.Errorf("%w: status %d", ErrLoginUnavailable, resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return LoginResult{}, fmt.Errorf("%w: %v", ErrLoginInvalid, err)
	}
	if !body.Success {
		return LoginResult{}, ErrInvalidCredentials
	}
	if body.Token == "" || body.User == nil {
		return LoginResult{}, fmt.Errorf("%w: missing token or profile", ErrLoginInvalid)
	}
	return LoginResult{Token: body.Token, Profile: *body.User}, nil
}

type refreshResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// Refresh implements [TokenRefresher]. Any failure is reported to the caller,
// who treats it as a skipped optimization, never as a session fault.
func (c *HTTPClient) Refresh(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/refresh-token", nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrIdentityRejected, resp.StatusCode)
	}

	var body refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIdentityRejected, err)
	}
	if !body.Success || body.Token == "" {
		return "", fmt.Errorf("%w: no token in refresh response", ErrIdentityRejected)
	}
	return body.Token, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
