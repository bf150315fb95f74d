package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flightkoy/questboard/internal/migrations"
	"github.com/flightkoy/questboard/internal/questboard"
)

// timestampLayout has fixed-width fractions so stored values sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite implements Store on a libSQL database. Cascades and the
// completion guard are done explicitly inside transactions so they do not
// depend on per-connection pragmas.
type SQLite struct {
	db   *sql.DB
	opts Options
}

// NewSQLite migrates db and wraps it. The store takes ownership of db.
func NewSQLite(ctx context.Context, db *sql.DB, opts Options) (*SQLite, error) {
	if err := migrations.Run(ctx, db); err != nil {
		return nil, err
	}
	return &SQLite{db: db, opts: opts.withDefaults()}, nil
}

func (s *SQLite) allSessions(ctx context.Context) ([]questboard.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_date, start_time, description FROM sessions ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var list []questboard.Session
	for rows.Next() {
		var ss questboard.Session
		if err := rows.Scan(&ss.ID, startDate(&ss.StartDate), startTime(&ss.StartTime), &ss.Description); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		list = append(list, ss)
	}
	return list, rows.Err()
}

func (s *SQLite) ListUpcoming(ctx context.Context) ([]questboard.Session, error) {
	list, err := s.allSessions(ctx)
	if err != nil {
		return nil, err
	}
	return upcoming(list, s.opts.Now(), s.opts.Location), nil
}

func (s *SQLite) ListAll(ctx context.Context) ([]questboard.Session, error) {
	list, err := s.allSessions(ctx)
	if err != nil {
		return nil, err
	}
	return latestFirst(list, s.opts.Location), nil
}

func (s *SQLite) Get(ctx context.Context, id int64) (questboard.Session, error) {
	var ss questboard.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_date, start_time, description FROM sessions WHERE id = ?
	`, id).Scan(&ss.ID, startDate(&ss.StartDate), startTime(&ss.StartTime), &ss.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return ss, fmt.Errorf("session %d: %w", id, questboard.ErrNotFound)
	}
	if err != nil {
		return ss, fmt.Errorf("getting session %d: %w", id, err)
	}
	return ss, nil
}

func (s *SQLite) Create(ctx context.Context, in questboard.NewSession) (questboard.Session, error) {
	out := questboard.Session{
		StartDate:   in.StartDate,
		StartTime:   in.StartTime,
		Description: in.Description,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (start_date, start_time, description)
		VALUES (?, ?, ?)
		RETURNING id
	`, in.StartDate, in.StartTime, in.Description).Scan(&out.ID)
	if err != nil {
		return questboard.Session{}, fmt.Errorf("creating session: %w", err)
	}
	return out, nil
}

func (s *SQLite) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attempts WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting attempts of session %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session %d: %w", id, err)
	}
	return tx.Commit()
}

func (s *SQLite) Record(ctx context.Context, in questboard.NewAttempt) (questboard.Attempt, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return questboard.Attempt{}, false, fmt.Errorf("beginning record: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE id = ?)`, in.SessionID,
	).Scan(&exists)
	if err != nil {
		return questboard.Attempt{}, false, fmt.Errorf("checking session %d: %w", in.SessionID, err)
	}
	if !exists {
		return questboard.Attempt{}, false, fmt.Errorf("session %d: %w", in.SessionID, questboard.ErrNotFound)
	}

	if in.CompletionID != "" {
		prev, err := completedAttempt(ctx, tx, in)
		if err == nil {
			return prev, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return questboard.Attempt{}, false, err
		}
	}

	at := in.At
	if at.IsZero() {
		at = s.opts.Now()
	}
	a := questboard.Attempt{
		SessionID:    in.SessionID,
		UserName:     in.UserName,
		DateTime:     at.UTC(),
		Rate:         in.Rate,
		CompletionID: in.CompletionID,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO attempts (session_id, user_name, date_time, rate, completion_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, a.SessionID, a.UserName, a.DateTime.Format(timestampLayout), a.Rate, nullString(a.CompletionID)).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race against the same completion in another connection.
			tx.Rollback()
			prev, lookupErr := completedAttempt(ctx, s.db, in)
			if lookupErr == nil {
				return prev, false, nil
			}
		}
		return questboard.Attempt{}, false, fmt.Errorf("recording attempt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return questboard.Attempt{}, false, fmt.Errorf("committing attempt: %w", err)
	}
	return a, true, nil
}

// layoutText scans a TEXT column that libSQL may hand back as a time.Time
// when the stored value looks like a date, and writes it in layout.
type layoutText struct {
	layout string
	dst    *string
}

func startDate(dst *string) *layoutText { return &layoutText{layout: questboard.DateLayout, dst: dst} }
func startTime(dst *string) *layoutText { return &layoutText{layout: questboard.TimeLayout, dst: dst} }

func (l *layoutText) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*l.dst = v
	case []byte:
		*l.dst = string(v)
	case time.Time:
		*l.dst = v.Format(l.layout)
	case nil:
		*l.dst = ""
	default:
		return fmt.Errorf("unsupported %T in date or time column", src)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const attemptColumns = `id, session_id, user_name, date_time, rate, COALESCE(completion_id, '')`

func completedAttempt(ctx context.Context, q queryer, in questboard.NewAttempt) (questboard.Attempt, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+attemptColumns+` FROM attempts
		WHERE session_id = ? AND user_name = ? AND completion_id = ?
	`, in.SessionID, in.UserName, in.CompletionID)
	return scanAttempt(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (questboard.Attempt, error) {
	var a questboard.Attempt
	var at string
	if err := row.Scan(&a.ID, &a.SessionID, &a.UserName, &at, &a.Rate, &a.CompletionID); err != nil {
		return a, err
	}
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return a, fmt.Errorf("parsing attempt %d time %q: %w", a.ID, at, err)
	}
	a.DateTime = t.UTC()
	return a, nil
}

func (s *SQLite) listAttempts(ctx context.Context, query string, args ...any) ([]questboard.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	out := []questboard.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) ListFor(ctx context.Context, sessionID int64, userName string) ([]questboard.Attempt, error) {
	out, err := s.listAttempts(ctx, `
		SELECT `+attemptColumns+` FROM attempts
		WHERE session_id = ? AND user_name = ?
	`, sessionID, userName)
	if err != nil {
		return nil, err
	}
	newestFirst(out)
	return out, nil
}

func (s *SQLite) ListBySession(ctx context.Context, sessionID int64) ([]questboard.Attempt, error) {
	return s.listAttempts(ctx, `
		SELECT `+attemptColumns+` FROM attempts
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
}

func (s *SQLite) ListPlayers(ctx context.Context, admin bool) ([]questboard.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_name, password_hash, is_admin FROM players
		WHERE is_admin = ?
		ORDER BY seq
	`, boolInt(admin))
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	out := []questboard.Player{}
	for rows.Next() {
		var p questboard.Player
		if err := rows.Scan(&p.UserName, &p.PasswordHash, &p.IsAdmin); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) CreatePlayer(ctx context.Context, p questboard.Player) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (user_name, password_hash, is_admin) VALUES (?, ?, ?)
	`, p.UserName, p.PasswordHash, boolInt(p.IsAdmin))
	if isUniqueViolation(err) {
		return fmt.Errorf("player %q: %w", p.UserName, questboard.ErrUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("creating player %q: %w", p.UserName, err)
	}
	return nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close() error { return s.db.Close() }

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ Store = (*SQLite)(nil)
