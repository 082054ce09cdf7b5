package internal_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gatepass/internal"
)

var _ = Describe("Config", func() {
	It("is valid out of the box", func() {
		cfg := internal.DefaultConfig()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.Stub.Validate()).To(Succeed())
		Expect(cfg.API.BaseURL).To(Equal(internal.DefaultBaseURL))
	})

	It("collects every section that fails", func() {
		cfg := internal.DefaultConfig()
		cfg.API.BaseURL = ""
		cfg.Logging.Level = "loud"

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("api config: base_url is required")))
		Expect(err).To(MatchError(ContainSubstring("logging config: level must be one of")))
	})

	It("rejects a negative timeout", func() {
		cfg := internal.DefaultConfig()
		cfg.API.Timeout = -time.Second
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	DescribeTable("stub config",
		func(mutate func(*internal.StubConfig), substring string) {
			cfg := internal.DefaultConfig().Stub
			mutate(&cfg)
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(substring)))
		},
		Entry("port", func(c *internal.StubConfig) { c.Port = 70000 }, "out of range"),
		Entry("driver", func(c *internal.StubConfig) { c.Database.Driver = "mysql" }, "sqlite or postgres"),
		Entry("shared secret", func(c *internal.StubConfig) { c.RefreshSecret = c.AccessSecret }, "must differ"),
		Entry("ttl", func(c *internal.StubConfig) { c.AccessTokenTTL = 0 }, "ttls must be positive"),
	)
})
