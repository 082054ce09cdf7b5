package stubapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/session"
)

// SeedUser is a fixture account; Password is stored hashed.
type SeedUser struct {
	Username string
	Password string
	Role     session.Role
}

var DefaultSeedUsers = []SeedUser{
	{Username: "supervisor", Password: "password", Role: session.RoleSSE},
	{Username: "alice", Password: "secret", Role: session.RoleWorkman},
	{Username: "bob", Password: "secret", Role: session.RoleWorkman},
}

// EnsureUser creates the account unless a user with that name exists.
func (s *Service) EnsureUser(ctx context.Context, su SeedUser) (User, error) {
	existing, err := s.repo.UserByUsername(ctx, su.Username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrInvalidCredentials) {
		return User{}, err
	}

	hash, err := s.HashPassword(su.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password for %s: %w", su.Username, err)
	}
	u := User{Username: su.Username, PasswordHash: hash, UserType: su.Role}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return User{}, fmt.Errorf("create user %s: %w", su.Username, err)
	}
	s.logger.Info("seeded user", "username", u.Username, "user_type", string(u.UserType))
	return u, nil
}

// Seed loads the default accounts and, when withPasses is set, one pass in
// each status.
func (s *Service) Seed(ctx context.Context, withPasses bool) error {
	users := make(map[string]User, len(DefaultSeedUsers))
	for _, su := range DefaultSeedUsers {
		u, err := s.EnsureUser(ctx, su)
		if err != nil {
			return err
		}
		users[su.Username] = u
	}
	if !withPasses {
		return nil
	}

	existing, err := s.repo.Passes(ctx, nil)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		s.logger.Info("gate passes already present, skipping")
		return nil
	}

	sup := users["supervisor"]
	alice := users["alice"]
	bob := users["bob"]

	pending, err := s.Create(ctx, alice, gatepass.FormDTO{TimeOut: "09:00", TimeIn: "11:30", Purpose: "Bank visit"})
	if err != nil {
		return err
	}
	approved, err := s.Create(ctx, bob, gatepass.FormDTO{TimeOut: "13:00", TimeIn: "14:00", Purpose: "Medical appointment"})
	if err != nil {
		return err
	}
	if _, err := s.Decide(ctx, sup, approved.ID, gatepass.ActionApprove, ""); err != nil {
		return err
	}
	rejected, err := s.Create(ctx, alice, gatepass.FormDTO{TimeOut: "15:00", TimeIn: "17:00", Purpose: "Personal errand"})
	if err != nil {
		return err
	}
	if _, err := s.Decide(ctx, sup, rejected.ID, gatepass.ActionReject, "Please attach the supervisor note"); err != nil {
		return err
	}

	s.logger.Info("seeded gate passes", "pending", pending.ID, "approved", approved.ID, "rejected", rejected.ID)
	return nil
}
