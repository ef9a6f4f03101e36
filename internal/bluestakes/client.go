// Package bluestakes is the client for the upstream utility-locate ticket
// service. It exchanges user credentials for a bearer token and exposes the
// two ticket queries the reconciliation engine needs: the bulk listing for an
// account and the per-ticket detail lookup.
package bluestakes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/locatekit/stakeflow/internal/models"
)

const bearerPrefix = "Bearer "

// RemoteError reports a failed upstream call. StatusCode is zero for
// transport-level failures.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bluestakes: %s returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("bluestakes: %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Client talks to the upstream ticket API. The zero value is not usable;
// construct with NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the given upstream base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginResponse struct {
	Authorization string `json:"Authorization"`
}

// Login exchanges credentials for a bearer token. The upstream responds with
// an Authorization field prefixed "Bearer ", which is stripped before reuse.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &RemoteError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RemoteError{Op: "login", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RemoteError{Op: "login", StatusCode: resp.StatusCode}
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &RemoteError{Op: "login", Err: fmt.Errorf("decode response: %w", err)}
	}

	token := strings.TrimSpace(strings.TrimPrefix(body.Authorization, bearerPrefix))
	if token == "" {
		return "", &RemoteError{Op: "login", Err: fmt.Errorf("response carried no token")}
	}
	return token, nil
}

// ListTickets returns the full ticket listing for the authenticated account.
func (c *Client) ListTickets(ctx context.Context, token string) ([]models.Ticket, error) {
	data, err := c.get(ctx, "/api/tickets", token)
	if err != nil {
		return nil, err
	}
	tickets, err := models.NormalizeTicketList(data)
	if err != nil {
		return nil, &RemoteError{Op: "list tickets", Err: fmt.Errorf("decode listing: %w", err)}
	}
	return tickets, nil
}

// GetTicketDetail looks up a single ticket by number.
func (c *Client) GetTicketDetail(ctx context.Context, ticketNumber, token string) (models.Ticket, error) {
	data, err := c.get(ctx, "/api/tickets/"+url.PathEscape(ticketNumber), token)
	if err != nil {
		return models.Ticket{}, err
	}
	ticket, err := models.NormalizeTicket(data)
	if err != nil {
		return models.Ticket{}, &RemoteError{Op: "ticket detail", Err: fmt.Errorf("decode detail: %w", err)}
	}
	return ticket, nil
}

func (c *Client) get(ctx context.Context, path, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &RemoteError{Op: "GET " + path, Err: err}
	}
	req.Header.Set("Authorization", bearerPrefix+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Op: "GET " + path, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Op: "GET " + path, Err: err}
	}
	return data, nil
}
