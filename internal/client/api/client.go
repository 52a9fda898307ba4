// Package api is the session client of the Salenus auth API. It holds the
// bearer token in a TokenStore, attaches it to every request and turns error
// answers into *APIError values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/models"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/netx"
)

// AuthResult is the answer to register and login.
type AuthResult struct {
	User  models.User
	Token string
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	logger  logging.Logger
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:3001". A nil httpClient means http.DefaultClient.
func New(baseURL string, httpClient *http.Client, tokens TokenStore, l logging.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", common.ErrorValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url %q must be http or https", common.ErrorValidation, baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	return &Client{baseURL: u, http: httpClient, tokens: tokens, logger: l.With("module", "api")}, nil
}

type authBody struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
	Token   string      `json:"token"`
}

type userBody struct {
	User models.User `json:"user"`
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	return c.authenticate(ctx, "register", map[string]string{"email": email, "password": password, "name": name})
}

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "login", map[string]string{"email": email, "password": password})
}

func (c *Client) authenticate(ctx context.Context, op string, body any) (*AuthResult, error) {
	var out authBody
	if err := c.do(ctx, http.MethodPost, "/api/auth/"+op, "", body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "no token in " + op + " response"}
	}
	if err := c.tokens.SetToken(ctx, out.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &AuthResult{User: out.User, Token: out.Token}, nil
}

// CurrentUser fetches the profile of the session owner.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var out userBody
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpgradePlan switches the session owner to plan.
func (c *Client) UpgradePlan(ctx context.Context, plan entitlement.Plan) (*models.User, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var out userBody
	if err := c.do(ctx, http.MethodPut, "/api/auth/upgrade-plan", token, map[string]string{"plan": string(plan)}, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Entitlements lists the features granted to the session owner.
func (c *Client) Entitlements(ctx context.Context) (*models.Entitlements, error) {
	token, err := c.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var out models.Entitlements
	if err := c.do(ctx, http.MethodGet, "/api/auth/entitlements", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session on the server. The local token is cleared
// whatever the server answers.
func (c *Client) Logout(ctx context.Context) error {
	token, err := c.requireToken(ctx)
	if err != nil {
		return err
	}

	callErr := c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
	if err := c.tokens.ClearToken(ctx); err != nil {
		return errors.Join(callErr, fmt.Errorf("clear token: %w", err))
	}
	return callErr
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := c.do(ctx, http.MethodGet, common.HealthPath, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping is Health without the payload.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}

// HasSession reports whether a token is stored.
func (c *Client) HasSession(ctx context.Context) (bool, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

func (c *Client) requireToken(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return "", &APIError{Status: http.StatusUnauthorized, Message: "not logged in"}
	}
	return token, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

// do sends one JSON request. A token, when given, goes in the
// Authorization header. A 2xx body is decoded into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := netx.Do(c.http, req)
	if err != nil {
		if errors.Is(err, common.ErrNetworkUnavailable) {
			c.logger.Debug(ctx, "request failed", "method", method, "path", path, "error", err)
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	data, err := netx.ReadAndClose(resp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
		c.logger.Debug(ctx, "request rejected", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: http.StatusBadGateway, Message: "malformed response: " + err.Error()}
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an
// error answer.
func errorMessage(data []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return genericMessage
	}
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return genericMessage
}
