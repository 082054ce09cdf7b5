package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/gatepass/internal/httpclient"
	"github.com/frahmantamala/gatepass/internal/session"
)

// APIClient is the part of httpclient.Client the auth service sends through.
type APIClient interface {
	DoJSON(ctx context.Context, req *httpclient.Request, out any) error
}

// SessionStore is the credential store the service writes to.
type SessionStore interface {
	Get(ctx context.Context) (session.Session, error)
	Set(ctx context.Context, sess session.Session) error
	Clear(ctx context.Context) error
}

// Tokens is the login response body.
type Tokens struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserType string `json:"user_type"`
}

type refreshResponse struct {
	Access   string `json:"access"`
	UserType string `json:"user_type,omitempty"`
}

// Status describes the locally held session. ExpiresAt is read from the
// access token without verifying it and is for display only.
type Status struct {
	Authenticated bool
	CanRefresh    bool
	Role          session.Role
	ExpiresAt     *time.Time
}

// Expired reports whether the access token's exp claim is in the past.
func (s Status) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
