// Package auth resolves password-only logins to identities and issues the
// bearer tokens that carry them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/flightkoy/questboard/internal/questboard"
	"github.com/flightkoy/questboard/internal/store"
)

var ErrMissingFields = errors.New("user name and password are required")

// Directory looks players up by password alone. Several players may share
// a password; the earliest registered one wins.
type Directory struct {
	players store.Players
	cost    int
}

func NewDirectory(players store.Players, cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{players: players, cost: cost}
}

// Hash returns the stored form of a password.
func (d *Directory) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// ResolvePlayer returns the user name of the first non-admin player whose
// password matches.
func (d *Directory) ResolvePlayer(ctx context.Context, password string) (string, error) {
	return d.resolve(ctx, password, false)
}

// ResolveAdmin is ResolvePlayer restricted to admins.
func (d *Directory) ResolveAdmin(ctx context.Context, password string) (string, error) {
	return d.resolve(ctx, password, true)
}

func (d *Directory) resolve(ctx context.Context, password string, admin bool) (string, error) {
	password = strings.TrimSpace(password)
	if password == "" {
		return "", questboard.ErrInvalidCredentials
	}
	players, err := d.players.ListPlayers(ctx, admin)
	if err != nil {
		return "", err
	}
	for _, p := range players {
		if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) == nil {
			return p.UserName, nil
		}
	}
	return "", questboard.ErrInvalidCredentials
}

// Register creates a non-admin player. An existing user name, compared
// case-sensitively, yields questboard.ErrUsernameTaken.
func (d *Directory) Register(ctx context.Context, userName, password string) (string, error) {
	userName = strings.TrimSpace(userName)
	password = strings.TrimSpace(password)
	if userName == "" || password == "" {
		return "", ErrMissingFields
	}
	h, err := d.Hash(password)
	if err != nil {
		return "", err
	}
	if err := d.players.CreatePlayer(ctx, questboard.Player{UserName: userName, PasswordHash: h}); err != nil {
		return "", err
	}
	return userName, nil
}
