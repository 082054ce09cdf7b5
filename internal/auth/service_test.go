package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/auth"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/httpclient"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// fakeAuthAPI answers /auth/ the way the gate-pass API does.
type fakeAuthAPI struct {
	mu           sync.Mutex
	calls        atomic.Int32
	userType     string
	logoutStatus int
	lastBody     map[string]string
	lastAuth     string
	lastMethod   string
}

func (f *fakeAuthAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.lastBody = body
	f.lastAuth = r.Header.Get("Authorization")
	f.lastMethod = r.Method
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodPost:
		if body["username"] != "alice" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "A1", "refresh": "R1", "user_type": f.userType})
	case http.MethodPut:
		if body["refresh"] != "R1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "A2", "user_type": f.userType})
	case http.MethodDelete:
		w.WriteHeader(f.logoutStatus)
	}
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		api       *fakeAuthAPI
		store     *session.Store
		publisher *recordingPublisher
		svc       *auth.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		api = &fakeAuthAPI{userType: "WorkMen", logoutStatus: http.StatusNoContent}
		server := httptest.NewServer(api)
		DeferCleanup(server.Close)

		store = session.NewMemoryStore()
		publisher = &recordingPublisher{}
		client := httpclient.New(httpclient.Config{BaseURL: server.URL}, store, logger.Discard())
		svc = auth.NewService(client, store, publisher, logger.Discard())
		client.SetRefresher(svc)
	})

	Describe("Login", func() {
		It("stores both tokens and the role", func() {
			sess, err := svc.Login(ctx, auth.LoginDTO{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())

			want := session.Session{AccessToken: "A1", RefreshToken: "R1", Role: session.RoleWorkman}
			Expect(sess).To(Equal(want))
			Expect(store.Get(ctx)).To(Equal(want))
			Expect(api.lastAuth).To(BeEmpty())
			Expect(publisher.types()).To(Equal([]string{events.EventTypeSessionStarted}))
		})

		It("canonicalizes the role tag", func() {
			api.userType = "sse"
			sess, err := svc.Login(ctx, auth.LoginDTO{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.Role).To(Equal(session.RoleSSE))
		})

		It("reports bad credentials generically and stores nothing", func() {
			_, err := svc.Login(ctx, auth.LoginDTO{Username: "alice", Password: "wrong"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeAuth))
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeInvalidCredentials))
			Expect(store.Get(ctx)).To(Equal(session.Session{}))
		})

		It("rejects blank fields without calling the server", func() {
			_, err := svc.Login(ctx, auth.LoginDTO{Username: " ", Password: "secret"})

			Expect(apperrors.IsValidationError(err)).To(BeTrue())
			Expect(api.calls.Load()).To(BeZero())
		})

		It("refuses an account with an unknown role", func() {
			api.userType = "admin"
			_, err := svc.Login(ctx, auth.LoginDTO{Username: "alice", Password: "secret"})

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeUnknownRole))
			Expect(store.Get(ctx)).To(Equal(session.Session{}))
		})
	})

	Describe("Refresh", func() {
		It("returns the new access token", func() {
			access, err := svc.Refresh(ctx, "R1")
			Expect(err).NotTo(HaveOccurred())
			Expect(access).To(Equal("A2"))
			Expect(api.lastMethod).To(Equal(http.MethodPut))
			Expect(api.lastBody).To(HaveKeyWithValue("refresh", "R1"))
		})

		It("fails as an auth error for a rejected refresh token", func() {
			_, err := svc.Refresh(ctx, "stale")
			Expect(apperrors.IsAuthError(err)).To(BeTrue())
		})
	})

	Describe("Logout", func() {
		BeforeEach(func() {
			_, err := svc.Login(ctx, auth.LoginDTO{Username: "alice", Password: "secret"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("revokes the refresh token and leaves the store empty", func() {
			Expect(svc.Logout(ctx)).To(Succeed())

			Expect(api.lastMethod).To(Equal(http.MethodDelete))
			Expect(api.lastBody).To(HaveKeyWithValue("refresh", "R1"))
			Expect(api.lastAuth).To(Equal("Bearer A1"))
			Expect(store.Get(ctx)).To(Equal(session.Session{}))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeSessionStarted, events.EventTypeSessionEnded}))
		})

		It("clears the store even when the server fails", func() {
			api.logoutStatus = http.StatusInternalServerError

			err := svc.Logout(ctx)

			Expect(err).To(HaveOccurred())
			Expect(store.Get(ctx)).To(Equal(session.Session{}))
			ended := publisher.events[len(publisher.events)-1].(*events.SessionEndedEvent)
			Expect(ended.ServerAcknowledged).To(BeFalse())
		})
	})

	Describe("Status", func() {
		It("is unauthenticated with an empty store", func() {
			status, err := svc.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Authenticated).To(BeFalse())
			Expect(status.ExpiresAt).To(BeNil())
		})

		It("reads the expiry from the access token without verifying it", func() {
			exp := time.Now().Add(-time.Minute).Truncate(time.Second)
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(exp),
			}).SignedString([]byte("unknown-to-client"))
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Set(ctx, session.Session{AccessToken: token, RefreshToken: "R1", Role: session.RoleSSE})).To(Succeed())

			status, err := svc.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Authenticated).To(BeTrue())
			Expect(status.Role).To(Equal(session.RoleSSE))
			Expect(status.ExpiresAt).NotTo(BeNil())
			Expect(status.ExpiresAt.Equal(exp)).To(BeTrue())
			Expect(status.Expired(time.Now())).To(BeTrue())
		})

		It("tolerates opaque access tokens", func() {
			Expect(store.Set(ctx, session.Session{AccessToken: "A1", Role: session.RoleWorkman})).To(Succeed())

			status, err := svc.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Authenticated).To(BeTrue())
			Expect(status.ExpiresAt).To(BeNil())
		})
	})
})
