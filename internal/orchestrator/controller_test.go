package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flightkoy/questboard/internal/client"
	"github.com/flightkoy/questboard/internal/orchestrator"
	"github.com/flightkoy/questboard/internal/questboard"
)

var testNow = time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)

type fakeNav struct {
	replaced   []string
	pushed     []string
	redirected []string
}

func (n *fakeNav) Replace(path string) { n.replaced = append(n.replaced, path) }
func (n *fakeNav) Push(path string)    { n.pushed = append(n.pushed, path) }
func (n *fakeNav) Redirect(url string) { n.redirected = append(n.redirected, url) }

type addCall struct {
	sessionID    int64
	rate         int
	completionID string
}

// fakeAPI answers from fixed data and records what it was asked.
type fakeAPI struct {
	tokens      client.TokenStore
	sessions    []questboard.Session
	board       client.Leaderboard
	attempts    []questboard.Attempt
	questURL    string
	adds        []addCall
	calls       int
	failAdd     bool
	failBoard   bool
	failSession bool
	loginErr    error
}

func (f *fakeAPI) auth(name string, role questboard.Role) (client.AuthResult, error) {
	f.calls++
	if f.loginErr != nil {
		return client.AuthResult{}, f.loginErr
	}
	tok := "tok-" + name
	f.tokens.Set(tok)
	return client.AuthResult{Token: tok, UserName: name, Role: role}, nil
}

func (f *fakeAPI) PlayerLoginOld(_ context.Context, password string) (client.AuthResult, error) {
	return f.auth("Maria", questboard.RolePlayer)
}

func (f *fakeAPI) AdminLogin(_ context.Context, password string) (client.AuthResult, error) {
	return f.auth("admin", questboard.RoleAdmin)
}

func (f *fakeAPI) PlayerRegister(_ context.Context, userName, _ string) (client.AuthResult, error) {
	return f.auth(userName, questboard.RolePlayer)
}

func (f *fakeAPI) Sessions(context.Context, client.Scope) ([]questboard.Session, error) {
	f.calls++
	if f.failSession {
		return nil, errors.New("network down")
	}
	return f.sessions, nil
}

func (f *fakeAPI) CreateSession(_ context.Context, in questboard.NewSession) (questboard.Session, error) {
	f.calls++
	s := questboard.Session{ID: int64(len(f.sessions) + 1), StartDate: in.StartDate, StartTime: in.StartTime, Description: in.Description}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeAPI) DeleteSession(_ context.Context, id int64) error {
	f.calls++
	return nil
}

func (f *fakeAPI) Leaderboard(_ context.Context, id int64) (client.Leaderboard, error) {
	f.calls++
	if f.failBoard {
		return client.Leaderboard{}, errors.New("timeout")
	}
	lb := f.board
	lb.SessionID = id
	return lb, nil
}

func (f *fakeAPI) Attempts(_ context.Context, id int64, userName string) ([]questboard.Attempt, error) {
	f.calls++
	return f.attempts, nil
}

func (f *fakeAPI) AddAttempt(_ context.Context, id int64, rate int, completionID string) (questboard.Attempt, error) {
	f.calls++
	f.adds = append(f.adds, addCall{id, rate, completionID})
	if f.failAdd {
		return questboard.Attempt{}, errors.New("server error")
	}
	return questboard.Attempt{SessionID: id, Rate: rate}, nil
}

func (f *fakeAPI) StartQuest(_ context.Context, id int64, returnBase string) (client.QuestStart, error) {
	f.calls++
	qs := client.QuestStart{SessionID: id, CompletionID: "cid-1"}
	if f.questURL != "" {
		qs.URL = f.questURL + "?returnBase=" + returnBase
	}
	return qs, nil
}

func newController(t *testing.T) (*orchestrator.Controller, *fakeAPI, *fakeNav) {
	t.Helper()
	tokens := client.NewMemoryTokens()
	api := &fakeAPI{
		tokens: tokens,
		sessions: []questboard.Session{
			{ID: 1, StartDate: "2025-03-01", StartTime: "14:30", Description: "Began"},
			{ID: 2, StartDate: "2025-03-02", StartTime: "10:00", Description: "Tomorrow"},
		},
		board: client.Leaderboard{Rows: []questboard.LeaderboardRow{{Rank: 1, UserName: "Antuan", Rate: 98}}},
	}
	nav := &fakeNav{}
	c := orchestrator.New(api, tokens, nav, orchestrator.Options{
		Origin: "https://board.example/",
		Now:    func() time.Time { return testNow },
	})
	return c, api, nav
}

func TestLoadWithoutToken(t *testing.T) {
	c, api, nav := newController(t)

	if err := c.Load(context.Background(), "/sessions/2", ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	st := c.State()
	if st.View != orchestrator.ViewSelector || st.User != nil {
		t.Errorf("state = %+v", st)
	}
	if api.calls != 0 {
		t.Errorf("anonymous load made %d API calls", api.calls)
	}
	if len(nav.replaced) != 1 || nav.replaced[0] != "/" {
		t.Errorf("replaced = %v", nav.replaced)
	}
}

func TestLoadClearsBadToken(t *testing.T) {
	c, api, _ := newController(t)
	api.tokens.Set("not-a-jwt")

	if err := c.Load(context.Background(), "/", ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if api.tokens.Get() != "" {
		t.Error("undecodable token kept")
	}
	if c.State().User != nil {
		t.Errorf("user = %+v", c.State().User)
	}
}

func TestLoginFlows(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password is inline", func(t *testing.T) {
		c, api, nav := newController(t)
		api.loginErr = &client.APIError{Status: 401, Code: "invalid_credentials"}
		if err := c.LoginOld(ctx, "nope"); err != nil {
			t.Fatalf("auth failure returned error: %v", err)
		}
		if st := c.State(); st.FormError != orchestrator.MsgWrongPassword || st.View != orchestrator.ViewSelector {
			t.Errorf("state = %+v", st)
		}
		if len(nav.replaced) != 0 {
			t.Errorf("navigated on failure: %v", nav.replaced)
		}
	})

	t.Run("network failure surfaces", func(t *testing.T) {
		c, api, _ := newController(t)
		api.loginErr = errors.New("dial tcp: refused")
		if err := c.LoginAdmin(ctx, "admin"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("player login loads sessions", func(t *testing.T) {
		c, _, nav := newController(t)
		if err := c.LoginOld(ctx, "m"); err != nil {
			t.Fatalf("login: %v", err)
		}
		st := c.State()
		if st.View != orchestrator.ViewSessions || st.User.UserName != "Maria" || st.User.IsAdmin {
			t.Errorf("state = %+v", st)
		}
		if len(st.Sessions) != 2 || nav.replaced[len(nav.replaced)-1] != "/sessions" {
			t.Errorf("sessions = %v, replaced = %v", st.Sessions, nav.replaced)
		}
	})

	t.Run("register validates locally", func(t *testing.T) {
		c, api, _ := newController(t)
		if err := c.Register(ctx, "  ", "pw"); err != nil {
			t.Fatal(err)
		}
		if c.State().FormError != orchestrator.MsgMissingFields || api.calls != 0 {
			t.Errorf("form error %q after %d calls", c.State().FormError, api.calls)
		}
	})

	t.Run("register taken", func(t *testing.T) {
		c, api, _ := newController(t)
		api.loginErr = &client.APIError{Status: 409, Code: "username_taken"}
		if err := c.Register(ctx, "Maria", "x"); err != nil {
			t.Fatal(err)
		}
		if c.State().FormError != orchestrator.MsgUsernameTaken {
			t.Errorf("form error = %q", c.State().FormError)
		}
	})
}

func TestSelectSessionRules(t *testing.T) {
	ctx := context.Background()

	c, _, nav := newController(t)
	c.LoginOld(ctx, "m")
	if c.SelectSession(ctx, 1) {
		t.Error("player opened a session that already started")
	}
	if c.SelectSession(ctx, 99) {
		t.Error("opened an unknown session")
	}
	if !c.SelectSession(ctx, 2) {
		t.Fatal("player could not open an upcoming session")
	}
	st := c.State()
	if st.View != orchestrator.ViewSessionDetail || st.SessionID != 2 || len(st.Board.Rows) != 1 {
		t.Errorf("state = %+v", st)
	}
	if nav.pushed[len(nav.pushed)-1] != "/sessions/2" {
		t.Errorf("pushed = %v", nav.pushed)
	}

	c.BackToSessions()
	if st := c.State(); st.View != orchestrator.ViewSessions || st.SessionID != 0 {
		t.Errorf("after back: %+v", st)
	}

	admin, _, _ := newController(t)
	admin.LoginAdmin(ctx, "admin")
	if !admin.SelectSession(ctx, 1) {
		t.Error("admin could not open a past session")
	}
}

func TestLoadRecordsCompletionOnce(t *testing.T) {
	ctx := context.Background()
	c, api, nav := newController(t)
	api.tokens.Set(issue(t, "Maria", questboard.RolePlayer))

	// The same return trip delivered twice, as a double-mounted page would.
	for range 2 {
		if err := c.Load(ctx, "/", "?rate=88&sessionId=2&userName=Maria&completionId=abc"); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if len(api.adds) != 1 {
		t.Fatalf("adds = %+v, want exactly one", api.adds)
	}
	if got := api.adds[0]; got != (addCall{2, 88, "abc"}) {
		t.Errorf("add = %+v", got)
	}
	st := c.State()
	if st.View != orchestrator.ViewSessionDetail || st.SessionID != 2 || st.Board.SessionID != 2 {
		t.Errorf("state = %+v", st)
	}
	if nav.replaced[0] != "/sessions/2" {
		t.Errorf("replaced = %v", nav.replaced)
	}
}

func TestLoadSwallowsRecordFailure(t *testing.T) {
	c, api, _ := newController(t)
	api.tokens.Set(issue(t, "Maria", questboard.RolePlayer))
	api.failAdd = true
	api.failBoard = true

	if err := c.Load(context.Background(), "/", "rate=50&sessionId=2"); err != nil {
		t.Fatalf("record failure escaped: %v", err)
	}
	if st := c.State(); st.View != orchestrator.ViewSessionDetail {
		t.Errorf("view = %s", st.View)
	}
}

func TestLoadReturnsRequiredReadFailure(t *testing.T) {
	c, api, _ := newController(t)
	api.tokens.Set(issue(t, "Maria", questboard.RolePlayer))
	api.failSession = true

	if err := c.Load(context.Background(), "/sessions", ""); err == nil {
		t.Fatal("session list failure was swallowed")
	}
}

func TestInAppQuest(t *testing.T) {
	ctx := context.Background()
	c, api, _ := newController(t)
	c.LoginOld(ctx, "m")
	c.SelectSession(ctx, 2)

	if err := c.StartQuest(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if st := c.State(); st.View != orchestrator.ViewQuest || st.QuestSessionID != 2 {
		t.Fatalf("state = %+v", st)
	}

	c.CompleteQuest(ctx, 0)
	if c.State().FormError != orchestrator.MsgInvalidRate || len(api.adds) != 0 {
		t.Fatalf("invalid rate accepted: %+v", api.adds)
	}

	c.CompleteQuest(ctx, 64)
	if len(api.adds) != 1 || api.adds[0] != (addCall{2, 64, "cid-1"}) {
		t.Fatalf("adds = %+v", api.adds)
	}
	if st := c.State(); st.View != orchestrator.ViewSessionDetail || st.SessionID != 2 || st.QuestSessionID != 0 {
		t.Errorf("state = %+v", st)
	}
}

func TestExternalQuest(t *testing.T) {
	ctx := context.Background()
	c, api, nav := newController(t)
	api.questURL = "https://quest.example/play"
	c.LoginOld(ctx, "m")
	c.SelectSession(ctx, 2)

	if err := c.StartQuest(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	want := "https://quest.example/play?returnBase=https://board.example/sessions/2"
	if len(nav.redirected) != 1 || nav.redirected[0] != want {
		t.Errorf("redirected = %v", nav.redirected)
	}
}

func TestCreateAndDeleteSession(t *testing.T) {
	ctx := context.Background()

	player, _, _ := newController(t)
	player.LoginOld(ctx, "m")
	if _, err := player.CreateSession(ctx, questboard.NewSession{StartDate: "2099-01-01", StartTime: "10:00"}); !errors.Is(err, questboard.ErrForbidden) {
		t.Errorf("player create err = %v", err)
	}
	if err := player.DeleteSession(ctx, 1); !errors.Is(err, questboard.ErrForbidden) {
		t.Errorf("player delete err = %v", err)
	}

	c, api, _ := newController(t)
	c.LoginAdmin(ctx, "admin")
	before := api.calls
	s, err := c.CreateSession(ctx, questboard.NewSession{StartDate: "2099-13-01", StartTime: "10:00"})
	if err != nil || s.ID != 0 {
		t.Fatalf("invalid create = %+v, %v", s, err)
	}
	if c.State().FormError != orchestrator.MsgInvalidStart || api.calls != before {
		t.Errorf("invalid input reached the API or no message: %q", c.State().FormError)
	}

	s, err = c.CreateSession(ctx, questboard.NewSession{StartDate: "2099-01-01", StartTime: "10:00"})
	if err != nil || s.ID != 3 {
		t.Fatalf("create = %+v, %v", s, err)
	}
	if len(c.State().Sessions) != 3 {
		t.Errorf("sessions not reloaded: %v", c.State().Sessions)
	}

	c.SelectSession(ctx, 3)
	if err := c.DeleteSession(ctx, 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if st := c.State(); st.View != orchestrator.ViewSessions || len(st.Sessions) != 2 {
		t.Errorf("after delete: %+v", st)
	}
}

func TestAttemptHistoryDedupes(t *testing.T) {
	ctx := context.Background()
	c, api, _ := newController(t)
	at := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	api.attempts = []questboard.Attempt{
		{ID: 3, SessionID: 2, UserName: "Maria", DateTime: at.Add(time.Minute), Rate: 70},
		{ID: 2, SessionID: 2, UserName: "Maria", DateTime: at, Rate: 81},
		{ID: 1, SessionID: 2, UserName: "Maria", DateTime: at, Rate: 81},
	}
	c.LoginOld(ctx, "m")
	c.SelectSession(ctx, 2)

	h, err := c.AttemptHistory(ctx, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if h.UserName != "Maria" || len(h.Attempts) != 2 || h.BestRate != 81 {
		t.Errorf("history = %+v", h)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	c, api, nav := newController(t)
	c.LoginOld(ctx, "m")
	c.SelectSession(ctx, 2)

	c.Logout()
	st := c.State()
	if st.View != orchestrator.ViewSelector || st.User != nil || st.SessionID != 0 || len(st.Sessions) != 0 {
		t.Errorf("state = %+v", st)
	}
	if api.tokens.Get() != "" {
		t.Error("token kept after logout")
	}
	if nav.replaced[len(nav.replaced)-1] != "/" {
		t.Errorf("replaced = %v", nav.replaced)
	}
}

func TestCompletionWithoutIDRecordsOncePerLogin(t *testing.T) {
	ctx := context.Background()
	c, api, _ := newController(t)
	const query = "?rate=70&sessionId=2&userName=Maria"

	api.tokens.Set(issue(t, "Maria", questboard.RolePlayer))
	for range 2 {
		if err := c.Load(ctx, "/", query); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if len(api.adds) != 1 {
		t.Fatalf("adds = %+v, want one before logout", api.adds)
	}

	c.Logout()
	api.tokens.Set(issue(t, "Maria", questboard.RolePlayer))
	if err := c.Load(ctx, "/", query); err != nil {
		t.Fatalf("load after logout: %v", err)
	}
	if len(api.adds) != 2 {
		t.Fatalf("adds = %+v, want a second record after logging in again", api.adds)
	}
	if got := api.adds[1]; got != (addCall{2, 70, ""}) {
		t.Errorf("add = %+v", got)
	}
}
