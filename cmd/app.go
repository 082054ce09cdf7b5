package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/auth"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/dashboard"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/httpclient"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/internal/session/sqlite"
	"github.com/frahmantamala/gatepass/internal/telemetry"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

// App is the composition root. The session store created here is the only
// one; every component reads credentials through it.
type App struct {
	Config     *internal.Config
	Logger     *slog.Logger
	Store      *session.Store
	Client     *httpclient.Client
	Auth       *auth.Service
	GatePasses *gatepass.Service
	Bus        *events.Bus
	Notifier   *terminalNotifier
	Navigator  *terminalNavigator

	backend  *sqlite.Backend
	shutdown telemetry.ShutdownFunc
}

func newApp(ctx context.Context, out io.Writer) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	lg := logger.LoggerWrapper()

	db, err := sqlite.Open(cfg.Session.Path)
	if err != nil {
		return nil, err
	}
	backend, err := sqlite.NewBackend(db)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(backend)

	bus := events.NewBus(lg)
	notifier := &terminalNotifier{out: out}
	navigator := &terminalNavigator{out: out}

	client := httpclient.New(httpclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, store, lg)
	authSvc := auth.NewService(client, store, bus, lg)
	client.SetRefresher(authSvc)
	client.OnSessionExpired(func(ctx context.Context) {
		if err := bus.Publish(ctx, events.NewSessionExpiredEvent()); err != nil {
			lg.Warn("session expiry handling failed", "error", err)
		}
	})

	bus.Subscribe(events.EventTypeSessionExpired, func(ctx context.Context, _ events.Event) error {
		notifier.Notify(ctx, dashboard.Notification{
			Variant:     dashboard.VariantDestructive,
			Title:       "Session expired",
			Description: "Please sign in again.",
		})
		return nil
	})
	bus.Subscribe(events.EventTypeSessionExpired, dashboard.ExpiryHandler(navigator))
	bus.Subscribe(events.EventTypeGatePassChanged, auditHandler(lg))

	return &App{
		Config:     cfg,
		Logger:     lg,
		Store:      store,
		Client:     client,
		Auth:       authSvc,
		GatePasses: gatepass.NewService(client, lg),
		Bus:        bus,
		Notifier:   notifier,
		Navigator:  navigator,
		backend:    backend,
		shutdown:   telemetry.Setup(ctx, cfg.Tracing.Enabled, cfg.Tracing.ServiceName, lg),
	}, nil
}

// auditHandler records every gate-pass mutation made from this client.
func auditHandler(lg *slog.Logger) events.Handler {
	return func(ctx context.Context, e events.Event) error {
		changed, ok := e.(*events.GatePassChangedEvent)
		if !ok {
			return fmt.Errorf("unexpected event %T", e)
		}
		lg.InfoContext(ctx, "gate pass changed",
			"event_id", changed.EventID(),
			"gatepass_id", changed.GatePassID,
			"action", changed.Action)
		return nil
	}
}

func (a *App) deps() dashboard.Deps {
	return dashboard.Deps{
		Sessions:   a.Store,
		GatePasses: a.GatePasses,
		Auth:       a.Auth,
		Notifier:   a.Notifier,
		Navigator:  a.Navigator,
		Publisher:  a.Bus,
		Logger:     a.Logger,
	}
}

// controller mounts the dashboard matching the stored role.
func (a *App) controller(ctx context.Context) (*dashboard.Controller, error) {
	sess, err := a.Store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, fmt.Errorf("not signed in; run `gatepass login` first")
	}

	var ctrl *dashboard.Controller
	if sess.Role == session.RoleSSE {
		ctrl = dashboard.NewSSE(a.deps())
	} else {
		ctrl = dashboard.NewWorkman(a.deps())
	}
	if err := ctrl.Mount(ctx); err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Close drains pending event handlers before releasing the store.
func (a *App) Close(ctx context.Context) {
	a.Bus.Wait()
	if err := a.shutdown(ctx); err != nil {
		a.Logger.Warn("tracer shutdown failed", "error", err)
	}
	if err := a.backend.Close(); err != nil {
		a.Logger.Warn("session store close failed", "error", err)
	}
}

// withApp runs fn with a fully wired App and closes it afterwards.
func withApp(ctx context.Context, fn func(ctx context.Context, app *App) error) error {
	app, err := newApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())
	return fn(ctx, app)
}
