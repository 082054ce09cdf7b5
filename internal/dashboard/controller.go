package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	apperrors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

var ErrForbiddenView = apperrors.NewForbiddenError("this dashboard is not available for the signed-in role", apperrors.ErrCodeWrongRole)

const (
	titleLoadFailed = "Error loading dashboard"
	textLoadFailed  = "Could not load dashboard data. Please try again."
	titleDownload   = "Download started"
	textDownload    = "Your gatepass PDF is being downloaded."
	titleDownloadKO = "Download failed"
	textDownloadKO  = "Could not download the gate pass PDF. Please try again."
)

type Controller struct {
	role session.Role
	deps Deps
	log  *slog.Logger

	mu     sync.RWMutex
	snap   gatepass.Snapshot
	loaded bool
}

func NewSSE(deps Deps) *Controller {
	return newController(session.RoleSSE, deps)
}

func NewWorkman(deps Deps) *Controller {
	return newController(session.RoleWorkman, deps)
}

func newController(role session.Role, deps Deps) *Controller {
	lg := deps.Logger
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Controller{
		role: role,
		deps: deps,
		log:  lg.With("dashboard", role.String()),
	}
}

func (c *Controller) Role() session.Role {
	return c.role
}

// Mount checks the stored role before the first fetch. Anyone else is sent
// to the landing route and gets ErrForbiddenView.
func (c *Controller) Mount(ctx context.Context) error {
	sess, err := c.deps.Sessions.Get(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to read session", err)
	}
	if !sess.Authenticated() || sess.Role != c.role {
		c.log.Info("role gate refused", "role", sess.Role.String())
		c.deps.Navigator.Navigate(ctx, RouteLanding)
		return ErrForbiddenView
	}
	return c.Refresh(ctx)
}

// Refresh replaces the snapshot with a fresh fetch.
func (c *Controller) Refresh(ctx context.Context) error {
	snap, err := c.deps.GatePasses.FetchDashboard(ctx)
	if err != nil {
		c.log.Error("dashboard fetch failed", "error", err)
		c.fail(ctx, titleLoadFailed, textLoadFailed)
		return err
	}

	c.mu.Lock()
	c.snap = snap
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func (c *Controller) Snapshot() gatepass.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Controller) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Controller) Analytics() gatepass.Counts {
	return c.Snapshot().Counts()
}

// Editable lists the workman's passes that can still be resubmitted.
func (c *Controller) Editable() []gatepass.GatePass {
	snap := c.Snapshot()
	out := make([]gatepass.GatePass, 0, len(snap.Pending)+len(snap.Rejected))
	out = append(out, snap.Pending...)
	return append(out, snap.Rejected...)
}

func (c *Controller) Downloadable() []gatepass.GatePass {
	return c.Snapshot().Approved
}

func (c *Controller) Approve(ctx context.Context, id int64) error {
	if err := c.require(session.RoleSSE); err != nil {
		return err
	}

	if _, err := c.deps.GatePasses.Approve(ctx, id); err != nil {
		c.log.Error("approve failed", "gatepass_id", id, "error", err)
		c.fail(ctx, "Error approving", "Could not approve the gate pass. Please try again.")
		return err
	}

	c.done(ctx, "Gatepass Approved", fmt.Sprintf("You have approved the gate pass for %s", c.applicant(id)))
	c.changed(ctx, id, gatepass.ActionApprove)
	return nil
}

// CanReject gates the reject confirmation on a non-blank reason.
func (c *Controller) CanReject(reason string) bool {
	return strings.TrimSpace(reason) != ""
}

func (c *Controller) Reject(ctx context.Context, id int64, reason string) error {
	if err := c.require(session.RoleSSE); err != nil {
		return err
	}
	if !c.CanReject(reason) {
		return gatepass.ValidateReason(reason)
	}

	if _, err := c.deps.GatePasses.Reject(ctx, id, reason); err != nil {
		c.log.Error("reject failed", "gatepass_id", id, "error", err)
		c.fail(ctx, "Error rejecting", "Could not reject the gate pass. Please try again.")
		return err
	}

	c.done(ctx, "Gatepass Rejected", fmt.Sprintf("You have rejected the gate pass for %s", c.applicant(id)))
	c.changed(ctx, id, gatepass.ActionReject)
	return nil
}

func (c *Controller) Create(ctx context.Context, d Draft) error {
	if err := c.require(session.RoleWorkman); err != nil {
		return err
	}
	if !d.CanSubmit() {
		return d.Form().Validate()
	}

	gp, err := c.deps.GatePasses.Create(ctx, d.Form())
	if err != nil {
		c.log.Error("create failed", "error", err)
		c.fail(ctx, "Submission Error", "Could not submit your gate pass request. Please try again.")
		return err
	}

	c.done(ctx, "Gate Pass Created", "Your gate pass request has been submitted and is pending approval.")
	c.changed(ctx, gp.ID, gatepass.ActionCreate)
	return nil
}

func (c *Controller) Update(ctx context.Context, id int64, d Draft) error {
	if err := c.require(session.RoleWorkman); err != nil {
		return err
	}
	if !d.CanSubmit() {
		return d.Form().Validate()
	}

	if _, err := c.deps.GatePasses.Update(ctx, id, d.Form()); err != nil {
		c.log.Error("update failed", "gatepass_id", id, "error", err)
		c.fail(ctx, "Submission Error", "Could not submit your gate pass request. Please try again.")
		return err
	}

	c.done(ctx, "Gate Pass Updated", "Your gate pass request has been updated and is pending approval.")
	c.changed(ctx, id, gatepass.ActionResubmit)
	return nil
}

// Download saves the PDF of pass id into dir and returns the file path.
func (c *Controller) Download(ctx context.Context, id int64, dir string) (string, error) {
	path, err := c.deps.GatePasses.SavePDF(ctx, id, dir)
	if err != nil {
		c.log.Error("download failed", "gatepass_id", id, "error", err)
		c.fail(ctx, titleDownloadKO, textDownloadKO)
		return "", err
	}
	c.notify(ctx, Notification{Variant: VariantDefault, Title: titleDownload, Description: textDownload})
	return path, nil
}

// Logout always ends on the landing route, whatever the server said.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.deps.Auth.Logout(ctx); err != nil {
		c.log.Warn("logout error", "error", err)
	}
	c.deps.Navigator.Navigate(ctx, RouteLanding)
}

func (c *Controller) require(role session.Role) error {
	if c.role != role {
		return apperrors.NewForbiddenError(fmt.Sprintf("only %s users can do this", role), apperrors.ErrCodeWrongRole)
	}
	return nil
}

func (c *Controller) applicant(id int64) string {
	if gp, ok := c.Snapshot().Find(id); ok && gp.WorkmanUsername != "" {
		return gp.WorkmanUsername
	}
	return fmt.Sprintf("#%d", id)
}

// done notifies success and re-fetches. A failed re-fetch raises its own
// notification but does not undo the successful mutation.
func (c *Controller) done(ctx context.Context, title, description string) {
	c.notify(ctx, Notification{Variant: VariantDefault, Title: title, Description: description})
	_ = c.Refresh(ctx)
}

func (c *Controller) fail(ctx context.Context, title, description string) {
	c.notify(ctx, Notification{Variant: VariantDestructive, Title: title, Description: description})
}

func (c *Controller) notify(ctx context.Context, n Notification) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(ctx, n)
	}
}

// asyncPublisher is satisfied by *events.Bus; the owner drains it with Wait.
type asyncPublisher interface {
	PublishAsync(ctx context.Context, event events.Event)
}

// changed announces a mutation. Listeners run off the caller's path when the
// publisher supports it.
func (c *Controller) changed(ctx context.Context, id int64, action gatepass.Action) {
	if c.deps.Publisher == nil {
		return
	}
	event := events.NewGatePassChangedEvent(id, string(action))
	if ap, ok := c.deps.Publisher.(asyncPublisher); ok {
		ap.PublishAsync(context.WithoutCancel(ctx), event)
		return
	}
	if err := c.deps.Publisher.Publish(ctx, event); err != nil {
		c.log.Warn("event delivery failed", "error", err)
	}
}
