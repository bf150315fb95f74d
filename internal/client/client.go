// Package client talks to the questboard HTTP API on behalf of a single
// user. The bearer token it sends lives in a TokenStore, so a login in one
// process is visible to the next one that shares the store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flightkoy/questboard/internal/questboard"
)

// ErrNotConfigured means the API base URL is unset. It is not recoverable.
var ErrNotConfigured = errors.New("client: API base URL is not configured")

// Scope selects which sessions Sessions returns.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeUpcoming Scope = "upcoming"
)

type AuthResult struct {
	Token    string          `json:"token"`
	UserName string          `json:"userName"`
	Role     questboard.Role `json:"role"`
}

type Standing struct {
	UserName string `json:"userName"`
	Rank     int    `json:"rank"`
	BestRate int    `json:"bestRate"`
}

type Leaderboard struct {
	SessionID int64                       `json:"sessionId"`
	Rows      []questboard.LeaderboardRow `json:"leaderboard"`
	Me        Standing                    `json:"me"`
}

// QuestStart is where to play a session. URL is empty when the server has
// no external quest site configured.
type QuestStart struct {
	SessionID    int64  `json:"sessionId"`
	CompletionID string `json:"completionId"`
	URL          string `json:"url,omitempty"`
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenStore
	logger *slog.Logger
}

func New(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrNotConfigured, baseURL)
	}
	if tokens == nil {
		tokens = NewMemoryTokens()
	}
	c := &Client{
		base:   base,
		http:   http.DefaultClient,
		tokens: tokens,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Tokens returns the store the client reads its bearer token from.
func (c *Client) Tokens() TokenStore { return c.tokens }

func (c *Client) PlayerLoginOld(ctx context.Context, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/player-login-old", map[string]string{"password": password})
}

func (c *Client) AdminLogin(ctx context.Context, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/admin-login", map[string]string{"password": password})
}

// PlayerRegister fails with an error matching ErrUsernameTaken when the
// name exists.
func (c *Client) PlayerRegister(ctx context.Context, userName, password string) (AuthResult, error) {
	return c.authenticate(ctx, "/api/auth/player-register", map[string]string{
		"userName": userName,
		"password": password,
	})
}

// authenticate stores the returned token on success.
func (c *Client) authenticate(ctx context.Context, path string, body any) (AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, path, nil, body, &res); err != nil {
		return AuthResult{}, err
	}
	if err := c.tokens.Set(res.Token); err != nil {
		return AuthResult{}, fmt.Errorf("saving token: %w", err)
	}
	return res, nil
}

func (c *Client) Sessions(ctx context.Context, scope Scope) ([]questboard.Session, error) {
	q := url.Values{}
	if scope != "" {
		q.Set("scope", string(scope))
	}
	var res struct {
		Sessions []questboard.Session `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions", q, nil, &res)
	return res.Sessions, err
}

type sessionEnvelope struct {
	Session questboard.Session `json:"session"`
}

func (c *Client) Session(ctx context.Context, id int64) (questboard.Session, error) {
	var res sessionEnvelope
	err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, nil, &res)
	return res.Session, err
}

func (c *Client) CreateSession(ctx context.Context, in questboard.NewSession) (questboard.Session, error) {
	var res sessionEnvelope
	err := c.do(ctx, http.MethodPost, "/api/sessions", nil, in, &res)
	return res.Session, err
}

func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil, nil)
}

func (c *Client) Leaderboard(ctx context.Context, id int64) (Leaderboard, error) {
	var lb Leaderboard
	err := c.do(ctx, http.MethodGet, sessionPath(id, "/leaderboard"), nil, nil, &lb)
	return lb, err
}

// Attempts lists a user's attempts in a session, newest first. An empty
// userName means the caller.
func (c *Client) Attempts(ctx context.Context, id int64, userName string) ([]questboard.Attempt, error) {
	q := url.Values{}
	if userName != "" {
		q.Set("userName", userName)
	}
	var res struct {
		Attempts []questboard.Attempt `json:"attempts"`
	}
	err := c.do(ctx, http.MethodGet, sessionPath(id, "/attempts"), q, nil, &res)
	return res.Attempts, err
}

// AddAttempt records the caller's rate. Repeating a completionID returns
// the attempt stored the first time.
func (c *Client) AddAttempt(ctx context.Context, id int64, rate int, completionID string) (questboard.Attempt, error) {
	body := struct {
		Rate         int    `json:"rate"`
		CompletionID string `json:"completionId,omitempty"`
	}{Rate: rate, CompletionID: completionID}
	var res struct {
		Attempt questboard.Attempt `json:"attempt"`
	}
	err := c.do(ctx, http.MethodPost, sessionPath(id, "/attempts"), nil, body, &res)
	return res.Attempt, err
}

func (c *Client) StartQuest(ctx context.Context, id int64, returnBase string) (QuestStart, error) {
	body := struct {
		ReturnBase string `json:"returnBase,omitempty"`
	}{ReturnBase: returnBase}
	var qs QuestStart
	err := c.do(ctx, http.MethodPost, sessionPath(id, "/quest"), nil, body, &qs)
	return qs, err
}

func sessionPath(id int64, suffix string) string {
	return "/api/sessions/" + strconv.FormatInt(id, 10) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Get(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
