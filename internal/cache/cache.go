// Package cache keeps computed leaderboards so repeated views of a busy
// session do not rescan its attempts. A miss or any cache error means the
// caller computes the leaderboard from the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flightkoy/questboard/internal/questboard"
)

type Leaderboards interface {
	Get(ctx context.Context, sessionID int64) ([]questboard.LeaderboardRow, bool, error)
	Set(ctx context.Context, sessionID int64, rows []questboard.LeaderboardRow) error
	Invalidate(ctx context.Context, sessionID int64) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, int64) ([]questboard.LeaderboardRow, bool, error) {
	return nil, false, nil
}
func (Nop) Set(context.Context, int64, []questboard.LeaderboardRow) error { return nil }
func (Nop) Invalidate(context.Context, int64) error                      { return nil }

// Redis stores each leaderboard as a JSON string with a TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: "questboard:leaderboard:", ttl: ttl}
}

func (c *Redis) key(sessionID int64) string {
	return c.prefix + strconv.FormatInt(sessionID, 10)
}

func (c *Redis) Get(ctx context.Context, sessionID int64) ([]questboard.LeaderboardRow, bool, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading leaderboard %d: %w", sessionID, err)
	}
	var rows []questboard.LeaderboardRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, fmt.Errorf("decoding leaderboard %d: %w", sessionID, err)
	}
	return rows, true, nil
}

func (c *Redis) Set(ctx context.Context, sessionID int64, rows []questboard.LeaderboardRow) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.key(sessionID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing leaderboard %d: %w", sessionID, err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, sessionID int64) error {
	if err := c.client.Del(ctx, c.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("invalidating leaderboard %d: %w", sessionID, err)
	}
	return nil
}

// Open parses rawURL and pings the server.
func Open(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

var (
	_ Leaderboards = Nop{}
	_ Leaderboards = (*Redis)(nil)
)
