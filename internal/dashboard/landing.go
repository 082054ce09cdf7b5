package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/gatepass/internal/auth"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

type LoginService interface {
	Login(ctx context.Context, dto auth.LoginDTO) (session.Session, error)
}

// Landing is the sign-in screen.
type Landing struct {
	auth     LoginService
	notifier Notifier
	nav      Navigator
	log      *slog.Logger
}

func NewLanding(svc LoginService, notifier Notifier, nav Navigator, lg *slog.Logger) *Landing {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Landing{auth: svc, notifier: notifier, nav: nav, log: lg}
}

// Login signs in and navigates to the dashboard for the returned role.
func (l *Landing) Login(ctx context.Context, username, password string) (session.Role, error) {
	sess, err := l.auth.Login(ctx, auth.LoginDTO{Username: username, Password: password})
	if err != nil {
		l.log.Error("login failed", "username", username, "error", err)
		l.notifier.Notify(ctx, Notification{
			Variant:     VariantDestructive,
			Title:       "Login failed",
			Description: "Please check your credentials and try again.",
		})
		return session.RoleUnknown, err
	}

	l.notifier.Notify(ctx, Notification{
		Variant:     VariantDefault,
		Title:       "Login successful!",
		Description: fmt.Sprintf("Welcome back, %s!", username),
	})
	l.nav.Navigate(ctx, RouteFor(sess.Role))
	return sess.Role, nil
}
