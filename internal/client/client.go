// Package client talks to a Kairo API server. It carries the bearer token,
// refreshes it once when the server answers 401, and decodes the
// {code, message, data} envelope.
package client

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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/internal/classifier"
	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
)

var (
	// ErrSessionExpired the refresh token was rejected or a retried request
	// was still unauthorized. Stored tokens are dropped; sign in again.
	ErrSessionExpired = errors.New("session expired, please sign in again")
	// ErrNotSignedIn an authenticated call was made without tokens.
	ErrNotSignedIn = errors.New("not signed in")
)

var (
	_ classifier.ClassifyAPI = (*Client)(nil)
	_ planner.Backend        = (*Client)(nil)
)

// APIError a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("kairo api: status %d", e.Status)
	}
	return fmt.Sprintf("kairo api: status %d: %s", e.Status, e.Message)
}

// UserMessage is a sentence fit to show an end user.
func (e *APIError) UserMessage() string {
	switch e.Status {
	case http.StatusBadRequest:
		if e.Message != "" {
			return e.Message
		}
		return "The request was invalid. Check your input and try again."
	case http.StatusUnauthorized:
		return "Your session has expired. Please sign in again."
	case http.StatusForbidden:
		return "You don't have permission to do that."
	case http.StatusNotFound:
		return "We couldn't find what you were looking for."
	case http.StatusTooManyRequests:
		return "Too many requests. Wait a moment and try again."
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return "The server ran into a problem. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}

// Tokens an access/refresh pair.
type Tokens struct {
	Access  string
	Refresh string
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu       sync.Mutex
	tokens   Tokens
	onTokens func(Tokens)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokens starts the client signed in.
func WithTokens(access, refresh string) Option {
	return func(c *Client) { c.tokens = Tokens{Access: access, Refresh: refresh} }
}

// WithLogger logs refreshes and forced sign-outs.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// OnTokens is called whenever the stored tokens change, including when they
// are cleared after ErrSessionExpired.
func OnTokens(fn func(Tokens)) Option {
	return func(c *Client) { c.onTokens = fn }
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the current pair.
func (c *Client) Tokens() Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *Client) setTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	fn := c.onTokens
	c.mu.Unlock()
	if fn != nil {
		fn(t)
	}
}

// ── auth ──

// Login signs in and keeps the returned tokens.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	var out dto.TokenResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/login/", nil, dto.LoginRequest{Username: username, Password: password}, false, &out)
	if err != nil {
		return nil, err
	}
	c.setTokens(Tokens{Access: out.AccessToken, Refresh: out.RefreshToken})
	return &out, nil
}

// Refresh exchanges the stored refresh token for a new pair. A rejected
// refresh token clears the tokens and returns ErrSessionExpired.
func (c *Client) Refresh(ctx context.Context) error {
	refresh := c.Tokens().Refresh
	if refresh == "" {
		return ErrNotSignedIn
	}

	var out dto.TokenResponse
	err := c.call(ctx, http.MethodPost, "/api/auth/token/refresh/", nil, dto.RefreshTokenRequest{RefreshToken: refresh}, false, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
			c.expire()
			return ErrSessionExpired
		}
		return err
	}

	c.setTokens(Tokens{Access: out.AccessToken, Refresh: out.RefreshToken})
	c.logger.Debug("access token refreshed")
	return nil
}

func (c *Client) expire() {
	c.logger.Info("session expired, signing out")
	c.setTokens(Tokens{})
}

// ── ai / schedule ──

// Classify implements classifier.ClassifyAPI against /api/ai/classify/.
func (c *Client) Classify(ctx context.Context, req classifier.ClassifyRequest) (*classifier.ClassifyResponse, error) {
	var out classifier.ClassifyResponse
	if err := c.call(ctx, http.MethodPost, "/api/ai/classify/", nil, req, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateSchedule implements planner.Backend. Nothing is saved server-side;
// a schedule the server could not build is returned with Success false.
func (c *Client) GenerateSchedule(ctx context.Context, req planner.BackendRequest) (*planner.Result, error) {
	save := false
	body := dto.GenerateScheduleRequest{
		Message:         req.Message,
		Program:         req.Program,
		Year:            req.Year,
		Term:            req.Term,
		TimePreferences: req.Preferences,
		Save:            &save,
	}

	var out planner.Result
	if err := c.call(ctx, http.MethodPost, "/api/schedule/generate/", nil, body, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetConversation clears the server-side conversation and generation session.
func (c *Client) ResetConversation(ctx context.Context) (*dto.ResetResponse, error) {
	var out dto.ResetResponse
	if err := c.call(ctx, http.MethodPost, "/api/ai/reset/", nil, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── calendar ──

// ListEvents every event of the signed-in user.
func (c *Client) ListEvents(ctx context.Context) ([]dto.CalendarEventResponse, error) {
	var out []dto.CalendarEventResponse
	if err := c.call(ctx, http.MethodGet, "/api/user-calendar/", nil, nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCalendarEvent creates one event.
func (c *Client) CreateCalendarEvent(ctx context.Context, req dto.CalendarEventRequest) (*dto.CalendarEventResponse, error) {
	var out dto.CalendarEventResponse
	if err := c.call(ctx, http.MethodPost, "/api/user-calendar/", nil, req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCalendarEvent patches one event.
func (c *Client) UpdateCalendarEvent(ctx context.Context, id string, req dto.UpdateCalendarEventRequest) (*dto.CalendarEventResponse, error) {
	var out dto.CalendarEventResponse
	if err := c.call(ctx, http.MethodPatch, "/api/user-calendar/"+url.PathEscape(id)+"/", nil, req, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCalendarEvent deletes one event.
func (c *Client) DeleteCalendarEvent(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/user-calendar/"+url.PathEscape(id)+"/", nil, nil, true, nil)
}

// BulkCreate creates many events. When none could be created the server
// answers 400; the per-item errors are still returned alongside the *APIError.
func (c *Client) BulkCreate(ctx context.Context, events []dto.CalendarEventRequest) (*dto.BulkCreateResponse, error) {
	var out dto.BulkCreateResponse
	err := c.call(ctx, http.MethodPost, "/api/user-calendar/bulk_create/", nil, dto.BulkCreateRequest{Events: events}, true, &out)
	if err != nil {
		if out.TotalErrors > 0 {
			return &out, err
		}
		return nil, err
	}
	return &out, nil
}

// ClearCalendar deletes every event, or those starting within
// startDate..endDate (YYYY-MM-DD) when given.
func (c *Client) ClearCalendar(ctx context.Context, startDate, endDate string) (*dto.ClearCalendarResponse, error) {
	q := url.Values{}
	if startDate != "" {
		q.Set("start_date", startDate)
	}
	if endDate != "" {
		q.Set("end_date", endDate)
	}

	var out dto.ClearCalendarResponse
	if err := c.call(ctx, http.MethodDelete, "/api/user-calendar/clear_calendar/", q, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportICS downloads the calendar as iCalendar text.
func (c *Client) ExportICS(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/calendar/export_ics/", nil, nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// ── transport ──

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

// call sends one request and decodes the envelope's data into out. A 2xx
// with a non-zero code still decodes data; the code only qualifies the result.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body any, auth bool, out any) error {
	resp, err := c.send(ctx, method, path, query, body, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response data: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Details: env.Details}
	}
	return nil
}

// send performs the request. For authenticated calls a 401 triggers exactly
// one refresh and one retry; a second 401 ends the session.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any, auth bool) (*http.Response, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = b
	}

	if auth && c.Tokens().Access == "" {
		return nil, ErrNotSignedIn
	}

	resp, err := c.attempt(ctx, method, path, query, payload, auth)
	if err != nil || !auth || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	drain(resp)

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	resp, err = c.attempt(ctx, method, path, query, payload, auth)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.expire()
		return nil, ErrSessionExpired
	}
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, payload []byte, auth bool) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.Tokens().Access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var env envelope
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)
	return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Details: env.Details}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}
