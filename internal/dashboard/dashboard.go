// Package dashboard drives the two role-specific dashboards. A Controller
// holds the latest snapshot, enforces the role gate on mount and turns every
// service outcome into a user notification.
package dashboard

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/session"
)

const (
	RouteLanding = "/"
	RouteSSE     = "/sse-dashboard"
	RouteWorkman = "/workman-dashboard"
)

// RouteFor is where a freshly signed-in user of role lands.
func RouteFor(role session.Role) string {
	if role == session.RoleSSE {
		return RouteSSE
	}
	return RouteWorkman
}

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Notification struct {
	Variant     Variant
	Title       string
	Description string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type Navigator interface {
	Navigate(ctx context.Context, route string)
}

type SessionReader interface {
	Get(ctx context.Context) (session.Session, error)
}

type GatePassService interface {
	FetchDashboard(ctx context.Context) (gatepass.Snapshot, error)
	Create(ctx context.Context, form gatepass.FormDTO) (gatepass.GatePass, error)
	Update(ctx context.Context, id int64, form gatepass.FormDTO) (gatepass.GatePass, error)
	Approve(ctx context.Context, id int64) (gatepass.GatePass, error)
	Reject(ctx context.Context, id int64, reason string) (gatepass.GatePass, error)
	SavePDF(ctx context.Context, id int64, dir string) (string, error)
}

type AuthService interface {
	Logout(ctx context.Context) error
}

// Deps are shared by every controller. Publisher and Logger may be nil.
type Deps struct {
	Sessions   SessionReader
	GatePasses GatePassService
	Auth       AuthService
	Notifier   Notifier
	Navigator  Navigator
	Publisher  events.Publisher
	Logger     *slog.Logger
}

// ExpiryHandler sends the user back to the landing route once the session
// has been torn down after a failed refresh.
func ExpiryHandler(nav Navigator) events.Handler {
	return func(ctx context.Context, _ events.Event) error {
		nav.Navigate(ctx, RouteLanding)
		return nil
	}
}
