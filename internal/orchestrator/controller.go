// Package orchestrator drives the questboard interface: which view is shown,
// for whom, and which API calls each user action makes.
//
// Controller is not safe for concurrent use. Like a UI event loop, one
// goroutine feeds it events and reads its State between them.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/flightkoy/questboard/internal/client"
	"github.com/flightkoy/questboard/internal/questboard"
	"github.com/flightkoy/questboard/internal/ranking"
)

// Inline messages shown next to the form that failed.
const (
	MsgWrongPassword  = "Wrong password"
	MsgMissingFields  = "Enter a user name and password"
	MsgUsernameTaken  = "This user name is already taken"
	MsgRegisterFailed = "Registration failed"
	MsgInvalidStart   = "Enter the date as YYYY-MM-DD and the time as HH:MM"
	MsgInvalidRate    = "The result must be between 1 and 100"
)

// API is the subset of *client.Client the controller calls.
type API interface {
	PlayerLoginOld(ctx context.Context, password string) (client.AuthResult, error)
	AdminLogin(ctx context.Context, password string) (client.AuthResult, error)
	PlayerRegister(ctx context.Context, userName, password string) (client.AuthResult, error)
	Sessions(ctx context.Context, scope client.Scope) ([]questboard.Session, error)
	CreateSession(ctx context.Context, in questboard.NewSession) (questboard.Session, error)
	DeleteSession(ctx context.Context, id int64) error
	Leaderboard(ctx context.Context, id int64) (client.Leaderboard, error)
	Attempts(ctx context.Context, id int64, userName string) ([]questboard.Attempt, error)
	AddAttempt(ctx context.Context, id int64, rate int, completionID string) (questboard.Attempt, error)
	StartQuest(ctx context.Context, id int64, returnBase string) (client.QuestStart, error)
}

// Navigator is the browser history.
type Navigator interface {
	Replace(path string)
	Push(path string)
	// Redirect leaves the application for an external URL.
	Redirect(url string)
}

type State struct {
	View      View
	User      *Identity
	SessionID int64
	Sessions  []questboard.Session
	Board     client.Leaderboard
	FormError string
	// QuestSessionID is the session being played in ViewQuest.
	QuestSessionID int64
}

type Options struct {
	Logger *slog.Logger
	// Origin prefixes return paths handed to the quest site, for example
	// https://board.example.
	Origin   string
	Now      func() time.Time
	Location *time.Location
}

type Controller struct {
	api    API
	tokens client.TokenStore
	nav    Navigator
	logger *slog.Logger
	origin string
	now    func() time.Time
	loc    *time.Location

	state        State
	completionID string
	processed    map[string]struct{}
}

// New builds a controller. tokens must be the store api reads its bearer
// token from.
func New(api API, tokens client.TokenStore, nav Navigator, opts Options) *Controller {
	c := &Controller{
		api:       api,
		tokens:    tokens,
		nav:       nav,
		logger:    opts.Logger,
		origin:    strings.TrimRight(opts.Origin, "/"),
		now:       opts.Now,
		loc:       opts.Location,
		state:     State{View: ViewSelector},
		processed: make(map[string]struct{}),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	s := c.state
	s.Sessions = slices.Clone(s.Sessions)
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (c *Controller) hasToken() bool { return c.tokens.Get() != "" }

// Load reconciles the stored token, the path and the query. A completion
// in the query is recorded at most once per controller, whatever the
// number of Load calls.
func (c *Controller) Load(ctx context.Context, path, rawQuery string) error {
	q, _ := parseQuery(rawQuery)
	res := Resolve(Input{Token: c.tokens.Get(), Path: path, Query: q})

	if res.ClearToken {
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn("clearing token failed", "error", err)
		}
	}
	c.state.User = res.Identity
	c.state.View = res.View
	c.state.SessionID = res.SessionID
	c.state.FormError = ""

	if res.Completion != nil {
		c.recordCompletion(ctx, *res.Completion)
	}
	if res.ReplacePath != "" {
		c.nav.Replace(res.ReplacePath)
	}

	if !c.hasToken() || c.state.View == ViewSelector {
		return nil
	}
	if err := c.loadSessions(ctx); err != nil {
		return err
	}
	if c.state.View == ViewSessionDetail {
		c.RefreshLeaderboard(ctx)
	}
	return nil
}

func (c *Controller) recordCompletion(ctx context.Context, comp Completion) {
	key := comp.Key()
	if _, done := c.processed[key]; done {
		return
	}
	c.processed[key] = struct{}{}
	if !c.hasToken() {
		return
	}
	if _, err := c.api.AddAttempt(ctx, comp.SessionID, comp.Rate, comp.CompletionID); err != nil {
		c.logger.Warn("recording returned quest result failed", "session_id", comp.SessionID, "error", err)
	}
}

func (c *Controller) loadSessions(ctx context.Context) error {
	list, err := c.api.Sessions(ctx, client.ScopeAll)
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}
	c.state.Sessions = list
	return nil
}

func (c *Controller) LoginOld(ctx context.Context, password string) error {
	return c.login(ctx, func() (client.AuthResult, error) { return c.api.PlayerLoginOld(ctx, password) })
}

func (c *Controller) LoginAdmin(ctx context.Context, password string) error {
	return c.login(ctx, func() (client.AuthResult, error) { return c.api.AdminLogin(ctx, password) })
}

func (c *Controller) login(ctx context.Context, call func() (client.AuthResult, error)) error {
	c.state.FormError = ""
	res, err := call()
	if err != nil {
		c.state.FormError = MsgWrongPassword
		if errors.Is(err, client.ErrInvalidCredentials) {
			return nil
		}
		return err
	}
	return c.signedIn(ctx, res)
}

// Register validates locally before calling the API.
func (c *Controller) Register(ctx context.Context, userName, password string) error {
	c.state.FormError = ""
	userName, password = strings.TrimSpace(userName), strings.TrimSpace(password)
	if userName == "" || password == "" {
		c.state.FormError = MsgMissingFields
		return nil
	}
	res, err := c.api.PlayerRegister(ctx, userName, password)
	if err != nil {
		if errors.Is(err, client.ErrUsernameTaken) {
			c.state.FormError = MsgUsernameTaken
			return nil
		}
		c.state.FormError = MsgRegisterFailed
		return err
	}
	return c.signedIn(ctx, res)
}

func (c *Controller) signedIn(ctx context.Context, res client.AuthResult) error {
	c.state.User = &Identity{
		UserName:  res.UserName,
		IsAdmin:   res.Role == questboard.RoleAdmin,
		FromToken: true,
	}
	c.state.View = ViewSessions
	c.state.SessionID = 0
	c.nav.Replace(PathSessions)
	return c.loadSessions(ctx)
}

func (c *Controller) Logout() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("clearing token failed", "error", err)
	}
	c.state = State{View: ViewSelector}
	c.completionID = ""
	clear(c.processed)
	c.nav.Replace(PathSelector)
}

// SelectSession opens a session's page. Players may only open sessions
// that have not started yet; admins may open any. It reports whether the
// view changed.
func (c *Controller) SelectSession(ctx context.Context, id int64) bool {
	i := slices.IndexFunc(c.state.Sessions, func(s questboard.Session) bool { return s.ID == id })
	if i < 0 || c.state.User == nil {
		return false
	}
	if !c.state.User.IsAdmin && !c.state.Sessions[i].IsUpcoming(c.now(), c.loc) {
		return false
	}
	c.state.SessionID = id
	c.state.View = ViewSessionDetail
	c.state.Board = client.Leaderboard{}
	c.nav.Push(SessionPath(id))
	c.RefreshLeaderboard(ctx)
	return true
}

func (c *Controller) BackToSessions() {
	c.state.SessionID = 0
	c.state.View = ViewSessions
	c.state.Board = client.Leaderboard{}
	c.nav.Push(PathSessions)
}

// StartQuest sends the player to the quest site, or to the in-app quest
// when none is configured.
func (c *Controller) StartQuest(ctx context.Context) error {
	id := c.state.SessionID
	if id == 0 || c.state.User == nil {
		return nil
	}
	qs, err := c.api.StartQuest(ctx, id, c.origin+SessionPath(id))
	if err != nil {
		return fmt.Errorf("starting quest: %w", err)
	}
	if qs.URL != "" {
		c.nav.Redirect(qs.URL)
		return nil
	}
	c.completionID = qs.CompletionID
	c.state.QuestSessionID = id
	c.state.View = ViewQuest
	return nil
}

// CompleteQuest finishes the in-app quest with rate. A failure to record
// is logged and the session page is shown anyway.
func (c *Controller) CompleteQuest(ctx context.Context, rate int) {
	id := c.state.QuestSessionID
	if id == 0 || c.state.User == nil {
		return
	}
	if rate < 1 || rate > 100 {
		c.state.FormError = MsgInvalidRate
		return
	}
	c.state.FormError = ""
	c.recordCompletion(ctx, Completion{
		SessionID:    id,
		Rate:         rate,
		UserName:     c.state.User.UserName,
		CompletionID: c.completionID,
	})
	c.completionID = ""
	c.state.QuestSessionID = 0
	c.state.SessionID = id
	c.state.View = ViewSessionDetail
	c.RefreshLeaderboard(ctx)
}

// CreateSession validates the start locally; invalid input never reaches
// the API. It returns the created session, or a zero session when the form
// was rejected.
func (c *Controller) CreateSession(ctx context.Context, in questboard.NewSession) (questboard.Session, error) {
	c.state.FormError = ""
	if c.state.User == nil || !c.state.User.IsAdmin {
		return questboard.Session{}, questboard.ErrForbidden
	}
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.StartTime = strings.TrimSpace(in.StartTime)
	if _, err := questboard.ParseStart(in.StartDate, in.StartTime, c.loc); err != nil {
		c.state.FormError = MsgInvalidStart
		return questboard.Session{}, nil
	}
	s, err := c.api.CreateSession(ctx, in)
	if err != nil {
		return questboard.Session{}, fmt.Errorf("creating session: %w", err)
	}
	return s, c.loadSessions(ctx)
}

func (c *Controller) DeleteSession(ctx context.Context, id int64) error {
	if c.state.User == nil || !c.state.User.IsAdmin {
		return questboard.ErrForbidden
	}
	if err := c.api.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	c.state.Sessions = slices.DeleteFunc(c.state.Sessions, func(s questboard.Session) bool { return s.ID == id })
	if c.state.SessionID == id {
		c.BackToSessions()
	}
	return nil
}

// RefreshLeaderboard reloads the selected session's board. Failures keep
// the previous board.
func (c *Controller) RefreshLeaderboard(ctx context.Context) {
	id := c.state.SessionID
	if id == 0 || !c.hasToken() {
		return
	}
	lb, err := c.api.Leaderboard(ctx, id)
	if err != nil {
		c.logger.Warn("refreshing leaderboard failed", "session_id", id, "error", err)
		return
	}
	c.state.Board = lb
}

// History is one user's attempts in the selected session with
// double submissions collapsed.
type History struct {
	UserName string
	Attempts []questboard.Attempt
	BestRate int
}

// AttemptHistory loads a user's attempts in the selected session. An empty
// userName means the signed-in user.
func (c *Controller) AttemptHistory(ctx context.Context, userName string) (History, error) {
	id := c.state.SessionID
	if userName == "" && c.state.User != nil {
		userName = c.state.User.UserName
	}
	if id == 0 || userName == "" {
		return History{}, nil
	}
	list, err := c.api.Attempts(ctx, id, userName)
	if err != nil {
		return History{}, fmt.Errorf("loading attempts: %w", err)
	}
	return History{
		UserName: userName,
		Attempts: ranking.Dedupe(list),
		BestRate: ranking.BestRate(list, id, userName),
	}, nil
}
