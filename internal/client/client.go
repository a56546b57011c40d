// Package client talks to the game server and mirrors session state locally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/stuff-happens/internal/api"
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	base  string
	http  *http.Client
	token string
}

func New(baseURL, token string) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		http:  &http.Client{Timeout: 15 * time.Second},
		token: token,
	}
}

func (c *Client) Token() string { return c.token }

func (c *Client) BaseURL() string { return c.base }

func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register", api.Credentials{Username: username, Password: password}, nil)
}

// Login stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (api.LoginResponse, error) {
	var out api.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", api.Credentials{Username: username, Password: password}, &out)
	if err == nil {
		c.token = out.AccessToken
	}
	return out, err
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	return err
}

func (c *Client) Current(ctx context.Context) (api.CurrentUser, error) {
	var out api.CurrentUser
	err := c.do(ctx, http.MethodGet, "/api/auth/current", nil, &out)
	return out, err
}

func (c *Client) StartSession(ctx context.Context) (api.StartSessionResponse, error) {
	var out api.StartSessionResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions", nil, &out)
	return out, err
}

func (c *Client) CurrentSession(ctx context.Context) (api.SessionView, error) {
	var out api.SessionView
	err := c.do(ctx, http.MethodGet, "/api/sessions/current", nil, &out)
	return out, err
}

func (c *Client) NextRound(ctx context.Context) (api.RoundCard, error) {
	var out api.RoundCard
	err := c.do(ctx, http.MethodPost, "/api/sessions/next-round", nil, &out)
	return out, err
}

func (c *Client) Guess(ctx context.Context, req api.GuessRequest) (api.GuessResponse, error) {
	var out api.GuessResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions/guess", req, &out)
	return out, err
}

func (c *Client) ForceComplete(ctx context.Context, sessionID int64, outcome string) (api.Session, error) {
	var out api.CompleteResponse
	path := "/api/sessions/" + strconv.FormatInt(sessionID, 10) + "/complete"
	err := c.do(ctx, http.MethodPost, path, api.CompleteRequest{Outcome: outcome}, &out)
	return out.Session, err
}

func (c *Client) History(ctx context.Context) ([]api.SessionView, error) {
	var out []api.SessionView
	err := c.do(ctx, http.MethodGet, "/api/sessions/history", nil, &out)
	return out, err
}

func (c *Client) StartDemo(ctx context.Context) (api.DemoStartResponse, error) {
	var out api.DemoStartResponse
	err := c.do(ctx, http.MethodGet, "/api/demo", nil, &out)
	return out, err
}

func (c *Client) GuessDemo(ctx context.Context, req api.DemoGuessRequest) (api.DemoGuessResponse, error) {
	var out api.DemoGuessResponse
	err := c.do(ctx, http.MethodPost, "/api/demo/guess", req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var er api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
			apiErr.Code, apiErr.Message, apiErr.Fields = er.Code, er.Message, er.Fields
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
