package dashboard_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/auth"
	"github.com/frahmantamala/gatepass/internal/dashboard"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

type fakeLogin struct {
	role session.Role
	err  error
	got  auth.LoginDTO
}

func (f *fakeLogin) Login(_ context.Context, dto auth.LoginDTO) (session.Session, error) {
	f.got = dto
	if f.err != nil {
		return session.Session{}, f.err
	}
	return session.Session{AccessToken: "A1", RefreshToken: "R1", Role: f.role}, nil
}

var _ = Describe("Landing", func() {
	var (
		notifier *recordingNotifier
		nav      *recordingNavigator
	)

	BeforeEach(func() {
		notifier = &recordingNotifier{}
		nav = &recordingNavigator{}
	})

	It("welcomes the user and opens their dashboard", func() {
		svc := &fakeLogin{role: session.RoleWorkman}
		landing := dashboard.NewLanding(svc, notifier, nav, logger.Discard())

		role, err := landing.Login(context.Background(), "alice", "secret")
		Expect(err).NotTo(HaveOccurred())
		Expect(role).To(Equal(session.RoleWorkman))
		Expect(svc.got).To(Equal(auth.LoginDTO{Username: "alice", Password: "secret"}))
		Expect(notifier.last()).To(Equal(dashboard.Notification{
			Variant:     dashboard.VariantDefault,
			Title:       "Login successful!",
			Description: "Welcome back, alice!",
		}))
		Expect(nav.current()).To(Equal(dashboard.RouteWorkman))
	})

	It("stays put on bad credentials", func() {
		svc := &fakeLogin{err: apperrors.NewAuthError("Invalid username or password", apperrors.ErrCodeInvalidCredentials)}
		landing := dashboard.NewLanding(svc, notifier, nav, logger.Discard())

		role, err := landing.Login(context.Background(), "alice", "wrong")
		Expect(apperrors.IsAuthError(err)).To(BeTrue())
		Expect(role).To(Equal(session.RoleUnknown))
		Expect(notifier.last().Title).To(Equal("Login failed"))
		Expect(notifier.last().Variant).To(Equal(dashboard.VariantDestructive))
		Expect(nav.routes).To(BeEmpty())
	})
})
