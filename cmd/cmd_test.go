package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/dashboard"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("loadConfig", func() {
	BeforeEach(func() {
		configFile, baseURL, logLevel = "", "", ""
		DeferCleanup(func() { configFile, baseURL, logLevel = "", "", "" })
	})

	It("reads a config file and lets the environment override it", func() {
		dir := GinkgoT().TempDir()
		configFile = filepath.Join(dir, "config.yml")
		Expect(os.WriteFile(configFile, []byte(`
api:
  base_url: http://gatepass.internal:9000
  timeout: 15s
session:
  path: /tmp/gatepass-test/session.db
logging:
  level: info
`), 0o600)).To(Succeed())
		setenv("GATEPASS_LOGGING_LEVEL", "debug")

		cfg, err := loadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.BaseURL).To(Equal("http://gatepass.internal:9000"))
		Expect(cfg.API.Timeout).To(Equal(15 * time.Second))
		Expect(cfg.Session.Path).To(Equal("/tmp/gatepass-test/session.db"))
		Expect(cfg.Logging.Level).To(Equal("debug"))
		Expect(cfg.Logging.Format).To(Equal("text"))
		Expect(cfg.Stub.Port).To(Equal(8000))
	})

	It("gives flags the last word", func() {
		setenv("GATEPASS_API_BASE_URL", "http://from-env:1")
		baseURL = "https://from-flag"

		cfg, err := loadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.BaseURL).To(Equal("https://from-flag"))
	})

	It("rejects an invalid base URL", func() {
		baseURL = "ftp://nope"
		_, err := loadConfig()
		Expect(err).To(MatchError(ContainSubstring("must be http or https")))
	})

	It("fails when an explicit config file is missing", func() {
		configFile = filepath.Join(GinkgoT().TempDir(), "absent.yml")
		_, err := loadConfig()
		Expect(err).To(HaveOccurred())
	})

	It("builds purely from the environment in production", func() {
		setenv("APP_ENV", "production")
		setenv("GATEPASS_API_BASE_URL", "https://gatepass.example.com")

		cfg, err := loadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.BaseURL).To(Equal("https://gatepass.example.com"))
		Expect(cfg.Logging.Format).To(Equal("json"))
	})
})

var _ = Describe("parseID", func() {
	It("accepts a positive id", func() {
		id, err := parseID("42")
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(int64(42)))
	})

	DescribeTable("rejects",
		func(arg string) {
			_, err := parseID(arg)
			Expect(internal.IsValidationError(err)).To(BeTrue())
		},
		Entry("zero", "0"),
		Entry("negative", "-3"),
		Entry("text", "seven"),
	)
})

var _ = Describe("describeError", func() {
	It("prints every field message of a validation error", func() {
		err := internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{
				{Field: "time_in", Message: "time_in is required"},
				{Field: "purpose", Message: "purpose is required"},
			}})
		Expect(describeError(err)).To(Equal("error: time_in is required; purpose is required"))
	})
})

var _ = Describe("terminal output", func() {
	It("marks destructive notifications", func() {
		var buf bytes.Buffer
		n := &terminalNotifier{out: &buf}
		n.Notify(context.Background(), dashboard.Notification{Variant: dashboard.VariantDestructive, Title: "Login failed", Description: "Please check your credentials and try again."})
		n.Notify(context.Background(), dashboard.Notification{Title: "Gate Pass Created"})

		Expect(buf.String()).To(Equal("✗ Login failed\n  Please check your credentials and try again.\n✓ Gate Pass Created\n"))
	})

	It("announces each route change once", func() {
		var buf bytes.Buffer
		nav := &terminalNavigator{out: &buf}
		nav.Navigate(context.Background(), dashboard.RouteSSE)
		nav.Navigate(context.Background(), dashboard.RouteSSE)
		nav.Navigate(context.Background(), dashboard.RouteLanding)

		Expect(nav.Route()).To(Equal(dashboard.RouteLanding))
		Expect(buf.String()).To(Equal("→ /sse-dashboard\n→ signed out. Run `gatepass login` to continue.\n"))
	})
})

var _ = Describe("auditHandler", func() {
	It("logs gate pass changes published asynchronously once the bus drains", func() {
		var buf bytes.Buffer
		lg := slog.New(slog.NewJSONHandler(&buf, nil))
		bus := events.NewBus(logger.Discard())
		bus.Subscribe(events.EventTypeGatePassChanged, auditHandler(lg))

		bus.PublishAsync(context.Background(), events.NewGatePassChangedEvent(7, "approve"))
		bus.Wait()

		Expect(buf.String()).To(ContainSubstring(`"msg":"gate pass changed"`))
		Expect(buf.String()).To(ContainSubstring(`"gatepass_id":7`))
		Expect(buf.String()).To(ContainSubstring(`"action":"approve"`))
	})

	It("rejects events of another type", func() {
		err := auditHandler(logger.Discard())(context.Background(), events.NewSessionExpiredEvent())
		Expect(err).To(MatchError(ContainSubstring("unexpected event")))
	})
})
