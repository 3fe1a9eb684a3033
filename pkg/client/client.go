package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/naveenspark/gatekeep/pkg/domain"
)

// ErrEmptyIdentity is returned by GetMe when the server answers 200 without a user.
var ErrEmptyIdentity = errors.New("empty identity")

// ErrMissingToken is returned by Login when the server answers 200 without a token.
var ErrMissingToken = errors.New("missing token in response")

// Client is the gatekeep API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client. An empty token sends no Authorization header.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a copy of the client that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	req := domain.LoginRequest{Username: username, Password: password}
	if err := c.post(ctx, "/login", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("client.Login: %w", ErrMissingToken)
	}
	return &resp, nil
}

// Register creates an account. The record is sent as-is; registration does
// not authenticate the caller.
func (c *Client) Register(ctx context.Context, userData map[string]any) error {
	body := make(map[string]any, len(userData))
	for k, v := range userData {
		body[k] = v
	}
	if err := c.post(ctx, "/register", body, nil); err != nil {
		return fmt.Errorf("client.Register: %w", err)
	}
	return nil
}

// GetMe returns the identity bound to the client's token.
func (c *Client) GetMe(ctx context.Context) (domain.User, error) {
	var resp domain.MeResponse
	if err := c.get(ctx, "/user/me", &resp); err != nil {
		return nil, fmt.Errorf("client.GetMe: %w", err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("client.GetMe: %w", ErrEmptyIdentity)
	}
	return resp.User, nil
}

// FetchIdentity validates token against GET /user/me.
func (c *Client) FetchIdentity(ctx context.Context, token string) (domain.User, error) {
	return c.WithToken(token).GetMe(ctx)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readHTTPError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func readHTTPError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &HTTPError{StatusCode: resp.StatusCode, Body: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	var apiErr domain.MessageResponse
	if json.Unmarshal(respBody, &apiErr) == nil {
		httpErr.Message = apiErr.Message
	}
	return httpErr
}
