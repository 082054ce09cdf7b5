package sqlite_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/internal/session/sqlite"
)

var _ = Describe("Sqlite credential backend", func() {
	var (
		ctx  context.Context
		path string
	)

	openStore := func() (*session.Store, *sqlite.Backend) {
		db, err := sqlite.Open(path)
		Expect(err).NotTo(HaveOccurred())
		backend, err := sqlite.NewBackend(db)
		Expect(err).NotTo(HaveOccurred())
		return session.NewStore(backend), backend
	}

	BeforeEach(func() {
		ctx = context.Background()
		path = filepath.Join(GinkgoT().TempDir(), "nested", "session.db")
	})

	It("persists a session across reopen", func() {
		store, backend := openStore()
		Expect(store.Set(ctx, session.Session{AccessToken: "A1", RefreshToken: "R1", Role: session.RoleWorkman})).To(Succeed())
		Expect(backend.Close()).To(Succeed())

		reopened, backend2 := openStore()
		defer backend2.Close()

		sess, err := reopened.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess).To(Equal(session.Session{AccessToken: "A1", RefreshToken: "R1", Role: session.RoleWorkman}))
	})

	It("overwrites only the access token on refresh", func() {
		store, backend := openStore()
		defer backend.Close()

		Expect(store.Set(ctx, session.Session{AccessToken: "A1", RefreshToken: "R1", Role: session.RoleSSE})).To(Succeed())
		Expect(store.SetAccessToken(ctx, "A2")).To(Succeed())

		sess, err := store.Get(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.AccessToken).To(Equal("A2"))
		Expect(sess.RefreshToken).To(Equal("R1"))
		Expect(sess.Role).To(Equal(session.RoleSSE))
	})

	It("removes every key on clear", func() {
		store, backend := openStore()
		defer backend.Close()

		Expect(store.Set(ctx, session.Session{AccessToken: "A1", RefreshToken: "R1", Role: session.RoleSSE})).To(Succeed())
		Expect(store.Clear(ctx)).To(Succeed())

		for _, key := range []string{session.KeyAccessToken, session.KeyRefreshToken, session.KeyUserType} {
			_, ok, err := backend.Get(ctx, key)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse(), key)
		}
	})
})
