package dashboard_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/dashboard"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

func sampleSnapshot() gatepass.Snapshot {
	reason := "missing note"
	return gatepass.Snapshot{
		Pending: []gatepass.GatePass{
			{ID: 7, WorkmanUsername: "alice", TimeOut: "09:00:00", TimeIn: "11:00:00", Purpose: "Bank", ApprovalStatus: gatepass.StatusPending},
		},
		Approved: []gatepass.GatePass{
			{ID: 8, WorkmanUsername: "bob", ApprovalStatus: gatepass.StatusApproved},
		},
		Rejected: []gatepass.GatePass{
			{ID: 9, WorkmanUsername: "alice", ApprovalStatus: gatepass.StatusRejected, RejectionReason: &reason},
		},
	}
}

var _ = Describe("Controller", func() {
	var (
		ctx      context.Context
		store    *session.Store
		passes   *fakeGatePasses
		authSvc  *fakeAuth
		notifier *recordingNotifier
		nav      *recordingNavigator
		bus      *events.Bus
		changes  []*events.GatePassChangedEvent
		mu       sync.Mutex
		deps     dashboard.Deps
	)

	signIn := func(role session.Role) {
		Expect(store.Set(ctx, session.Session{AccessToken: "A1", RefreshToken: "R1", Role: role})).To(Succeed())
	}

	// published drains the asynchronous change events.
	published := func() []*events.GatePassChangedEvent {
		bus.Wait()
		mu.Lock()
		defer mu.Unlock()
		return append([]*events.GatePassChangedEvent(nil), changes...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = session.NewMemoryStore()
		passes = newFakeGatePasses(sampleSnapshot())
		authSvc = &fakeAuth{}
		notifier = &recordingNotifier{}
		nav = &recordingNavigator{}
		bus = events.NewBus(logger.Discard())
		changes = nil
		bus.Subscribe(events.EventTypeGatePassChanged, func(_ context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, e.(*events.GatePassChangedEvent))
			return nil
		})
		deps = dashboard.Deps{
			Sessions:   store,
			GatePasses: passes,
			Auth:       authSvc,
			Notifier:   notifier,
			Navigator:  nav,
			Publisher:  bus,
			Logger:     logger.Discard(),
		}
	})

	Describe("Mount", func() {
		It("sends a workman away from the SSE dashboard without fetching", func() {
			signIn(session.RoleWorkman)
			ctrl := dashboard.NewSSE(deps)

			err := ctrl.Mount(ctx)
			Expect(err).To(MatchError(dashboard.ErrForbiddenView))
			Expect(nav.current()).To(Equal(dashboard.RouteLanding))
			Expect(passes.fetchCount()).To(BeZero())
			Expect(ctrl.Loaded()).To(BeFalse())
		})

		It("refuses a signed-out user", func() {
			err := dashboard.NewWorkman(deps).Mount(ctx)
			Expect(err).To(MatchError(dashboard.ErrForbiddenView))
			Expect(nav.current()).To(Equal(dashboard.RouteLanding))
		})

		It("loads the snapshot for the matching role", func() {
			signIn(session.RoleSSE)
			ctrl := dashboard.NewSSE(deps)

			Expect(ctrl.Mount(ctx)).To(Succeed())
			Expect(ctrl.Loaded()).To(BeTrue())
			Expect(ctrl.Analytics()).To(Equal(gatepass.Counts{Pending: 1, Approved: 1, Rejected: 1, Total: 3}))
			Expect(nav.routes).To(BeEmpty())
		})

		It("notifies when the fetch fails", func() {
			signIn(session.RoleSSE)
			passes.fetchErr = errBoom
			ctrl := dashboard.NewSSE(deps)

			Expect(ctrl.Mount(ctx)).To(MatchError(errBoom))
			Expect(ctrl.Loaded()).To(BeFalse())
			Expect(notifier.last().Variant).To(Equal(dashboard.VariantDestructive))
			Expect(notifier.last().Title).To(Equal("Error loading dashboard"))
		})
	})

	Describe("SSE actions", func() {
		var ctrl *dashboard.Controller

		BeforeEach(func() {
			signIn(session.RoleSSE)
			ctrl = dashboard.NewSSE(deps)
			Expect(ctrl.Mount(ctx)).To(Succeed())
		})

		It("approves, names the applicant and re-fetches", func() {
			Expect(ctrl.Approve(ctx, 7)).To(Succeed())

			Expect(passes.approved).To(Equal([]int64{7}))
			Expect(notifier.last().Title).To(Equal("Gatepass Approved"))
			Expect(notifier.last().Description).To(Equal("You have approved the gate pass for alice"))
			Expect(passes.fetchCount()).To(Equal(2))

			Expect(published()).To(HaveLen(1))
			Expect(published()[0].GatePassID).To(Equal(int64(7)))
			Expect(published()[0].Action).To(Equal("approve"))
		})

		It("does not re-fetch when the approval fails", func() {
			passes.mutateErr = errBoom

			Expect(ctrl.Approve(ctx, 7)).To(MatchError(errBoom))
			Expect(notifier.last().Title).To(Equal("Error approving"))
			Expect(passes.fetchCount()).To(Equal(1))
			Expect(published()).To(BeEmpty())
		})

		It("never sends a reject without a reason", func() {
			Expect(ctrl.CanReject("   ")).To(BeFalse())

			err := ctrl.Reject(ctx, 7, "   ")
			Expect(apperrors.IsValidationError(err)).To(BeTrue())
			Expect(passes.rejected).To(BeEmpty())
			Expect(notifier.titles()).To(BeEmpty())
		})

		It("rejects with the given reason", func() {
			Expect(ctrl.CanReject("No escort")).To(BeTrue())
			Expect(ctrl.Reject(ctx, 7, "No escort")).To(Succeed())

			Expect(passes.rejected).To(HaveKeyWithValue(int64(7), "No escort"))
			Expect(notifier.last().Description).To(Equal("You have rejected the gate pass for alice"))
		})

		It("cannot create a pass", func() {
			err := ctrl.Create(ctx, dashboard.Draft{TimeIn: "10:00", Purpose: "x"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeWrongRole))
			Expect(passes.created).To(BeEmpty())
		})

		It("falls back to the id when the applicant is unknown", func() {
			Expect(ctrl.Approve(ctx, 42)).To(Succeed())
			Expect(notifier.titles()).To(ContainElement("Gatepass Approved"))
			Expect(notifier.notes[0].Description).To(Equal("You have approved the gate pass for #42"))
		})
	})

	Describe("workman actions", func() {
		var ctrl *dashboard.Controller

		BeforeEach(func() {
			signIn(session.RoleWorkman)
			ctrl = dashboard.NewWorkman(deps)
			Expect(ctrl.Mount(ctx)).To(Succeed())
		})

		It("lists pending and rejected passes as editable", func() {
			ids := []int64{}
			for _, gp := range ctrl.Editable() {
				ids = append(ids, gp.ID)
			}
			Expect(ids).To(ConsistOf(int64(7), int64(9)))
			Expect(ctrl.Downloadable()).To(HaveLen(1))
			Expect(ctrl.Downloadable()[0].ID).To(Equal(int64(8)))
		})

		It("holds back a draft without a purpose", func() {
			err := ctrl.Create(ctx, dashboard.Draft{TimeOut: "09:00", TimeIn: "10:00"})
			Expect(apperrors.IsValidationError(err)).To(BeTrue())
			Expect(passes.created).To(BeEmpty())
		})

		It("submits a trimmed draft", func() {
			Expect(ctrl.Create(ctx, dashboard.Draft{TimeOut: "09:00", TimeIn: " 10:00 ", Purpose: "  Bank  "})).To(Succeed())

			Expect(passes.created).To(Equal([]gatepass.FormDTO{{TimeOut: "09:00", TimeIn: "10:00", Purpose: "Bank"}}))
			Expect(notifier.last().Title).To(Equal("Gate Pass Created"))
			Expect(passes.fetchCount()).To(Equal(2))
			Expect(published()).To(HaveLen(1))
			Expect(published()[0].Action).To(Equal("create"))
		})

		It("resubmits an edited pass", func() {
			draft := dashboard.EditDraft(sampleSnapshot().Rejected[0])
			draft.TimeIn = "12:00"
			draft.Purpose = "Bank, with note"

			Expect(ctrl.Update(ctx, 9, draft)).To(Succeed())
			Expect(passes.updated).To(HaveKey(int64(9)))
			Expect(notifier.last().Title).To(Equal("Gate Pass Updated"))
			Expect(published()[0].Action).To(Equal("resubmit"))
		})

		It("reports a failed submission", func() {
			passes.mutateErr = errBoom

			Expect(ctrl.Create(ctx, dashboard.Draft{TimeIn: "10:00", Purpose: "Bank"})).To(MatchError(errBoom))
			Expect(notifier.last().Title).To(Equal("Submission Error"))
			Expect(notifier.last().Variant).To(Equal(dashboard.VariantDestructive))
		})

		It("cannot approve", func() {
			Expect(ctrl.Approve(ctx, 7)).To(HaveOccurred())
			Expect(passes.approved).To(BeEmpty())
		})

		It("downloads an approved pass", func() {
			path, err := ctrl.Download(ctx, 8, "/tmp/out")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("/tmp/out/gatepass_8.pdf"))
			Expect(notifier.last().Title).To(Equal("Download started"))
		})

		It("reports a failed download", func() {
			passes.mutateErr = errBoom

			_, err := ctrl.Download(ctx, 8, "/tmp/out")
			Expect(err).To(MatchError(errBoom))
			Expect(notifier.last().Title).To(Equal("Download failed"))
		})
	})

	Describe("Logout", func() {
		It("lands on the landing route even when the server call fails", func() {
			signIn(session.RoleWorkman)
			authSvc.err = errBoom

			dashboard.NewWorkman(deps).Logout(ctx)
			Expect(authSvc.calls).To(Equal(1))
			Expect(nav.current()).To(Equal(dashboard.RouteLanding))
		})
	})

	It("routes each role to its own dashboard", func() {
		Expect(dashboard.RouteFor(session.RoleSSE)).To(Equal(dashboard.RouteSSE))
		Expect(dashboard.RouteFor(session.RoleWorkman)).To(Equal(dashboard.RouteWorkman))
	})

	It("navigates to landing when the session expires", func() {
		bus.Subscribe(events.EventTypeSessionExpired, dashboard.ExpiryHandler(nav))
		Expect(bus.Publish(ctx, events.NewSessionExpiredEvent())).To(Succeed())
		Expect(nav.current()).To(Equal(dashboard.RouteLanding))
	})
})
