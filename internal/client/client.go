// Package client talks to a speakwell server over its JSON API. Client is the
// Authenticator behind command line sessions.
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
	"sort"
	"strconv"
	"strings"
	"time"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/security"
	"speakwell/internal/session"
)

const collaboratorName = "speakwell api"

// APIError is a non-2xx response from the server
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return fmt.Sprintf("server returned %d: %s (%s)", e.Status, e.Message, strings.Join(parts, ", "))
}

// Client calls the speakwell API at a base URL
type Client struct {
	baseURL    string
	httpClient *http.Client
	decoder    session.TokenDecoder
}

// New creates a client. A nil httpClient gets a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		decoder:    security.UnverifiedDecoder{},
	}
}

type sessionPayload struct {
	Authenticated bool             `json:"authenticated"`
	User          *session.Session `json:"user"`
	Token         string           `json:"token"`
}

// Login signs in with creds
func (c *Client) Login(ctx context.Context, creds session.Credentials) (session.Grant, error) {
	return c.grant(ctx, "/auth/login", creds)
}

// Register creates an account and signs in
func (c *Client) Register(ctx context.Context, reg session.Registration) (session.Grant, error) {
	return c.grant(ctx, "/auth/register", reg)
}

func (c *Client) grant(ctx context.Context, path string, body interface{}) (session.Grant, error) {
	var out sessionPayload
	if err := c.do(ctx, http.MethodPost, path, "", body, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return session.Grant{}, &apperrors.AuthError{Reason: apiErr.Message, Err: apiErr}
		}
		return session.Grant{}, err
	}
	if out.Token == "" {
		return session.Grant{}, fmt.Errorf("%s did not return a session token", collaboratorName)
	}

	id, err := c.decoder.Parse(out.Token)
	if err != nil {
		return session.Grant{}, fmt.Errorf("decode session token: %w", err)
	}
	return session.Grant{Identity: id, Token: out.Token}, nil
}

// Revoke signs the session out on the server
func (c *Client) Revoke(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.Token == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", sess.Token, nil, nil)
}

// Me returns the identity the server holds for token, or nil when the
// server no longer accepts it.
func (c *Client) Me(ctx context.Context, token string) (*session.Session, error) {
	var out sessionPayload
	if err := c.do(ctx, http.MethodGet, "/auth/session", token, nil, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	if !out.Authenticated {
		return nil, nil
	}
	return out.User, nil
}

// LessonPage is a lesson listing with its chapter numbers
type LessonPage struct {
	Lessons  []models.Lesson `json:"lessons"`
	Chapters []int           `json:"chapters"`
}

// Lessons lists the lessons visible to token's account
func (c *Client) Lessons(ctx context.Context, token string, filter models.LessonFilter) (*LessonPage, error) {
	q := url.Values{}
	if filter.Unit > 0 {
		q.Set("unit", strconv.Itoa(filter.Unit))
	}
	if filter.Chapter > 0 {
		q.Set("chapter", strconv.Itoa(filter.Chapter))
	}
	if filter.MaxLevel > 0 {
		q.Set("level", strconv.Itoa(filter.MaxLevel))
	}
	path := "/lessons"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page LessonPage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Units lists the units unlocked for token's account
func (c *Client) Units(ctx context.Context, token string) ([]models.Unit, error) {
	var units []models.Unit
	if err := c.do(ctx, http.MethodGet, "/units", token, nil, &units); err != nil {
		return nil, err
	}
	return units, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.FromTransport(collaboratorName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Fields = payload.Fields
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, apiErr)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return &apperrors.NetworkError{Collaborator: collaboratorName, Err: apiErr}
	case http.StatusGatewayTimeout:
		return &apperrors.CollaboratorTimeout{Collaborator: collaboratorName, Err: apiErr}
	}
	return apiErr
}
