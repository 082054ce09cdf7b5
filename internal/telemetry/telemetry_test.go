package telemetry_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gatepass/internal/telemetry"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

var _ = Describe("Setup", func() {
	It("is a no-op when disabled", func() {
		GinkgoT().Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

		shutdown := telemetry.Setup(context.Background(), false, "gatepass", logger.Discard())
		Expect(shutdown(context.Background())).To(Succeed())
	})

	It("is a no-op without an endpoint", func() {
		GinkgoT().Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

		shutdown := telemetry.Setup(context.Background(), true, "gatepass", logger.Discard())
		Expect(shutdown(context.Background())).To(Succeed())
	})
})
