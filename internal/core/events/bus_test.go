package events_test

import (
	"context"
	"errors"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

var _ = Describe("Bus", func() {
	var (
		ctx context.Context
		bus *events.Bus
	)

	BeforeEach(func() {
		ctx = context.Background()
		bus = events.NewBus(logger.Discard())
	})

	It("delivers to handlers in subscription order before returning", func() {
		var order []string
		bus.Subscribe(events.EventTypeSessionExpired, func(context.Context, events.Event) error {
			order = append(order, "first")
			return nil
		})
		bus.Subscribe(events.EventTypeSessionExpired, func(context.Context, events.Event) error {
			order = append(order, "second")
			return nil
		})

		Expect(bus.Publish(ctx, events.NewSessionExpiredEvent())).To(Succeed())
		Expect(order).To(Equal([]string{"first", "second"}))
	})

	It("keeps delivering after a handler fails or panics", func() {
		var delivered atomic.Int32
		bus.Subscribe(events.EventTypeGatePassChanged, func(context.Context, events.Event) error {
			return errors.New("boom")
		})
		bus.Subscribe(events.EventTypeGatePassChanged, func(context.Context, events.Event) error {
			panic("handler bug")
		})
		bus.Subscribe(events.EventTypeGatePassChanged, func(_ context.Context, e events.Event) error {
			delivered.Add(1)
			Expect(e.(*events.GatePassChangedEvent).GatePassID).To(Equal(int64(7)))
			return nil
		})

		err := bus.Publish(ctx, events.NewGatePassChangedEvent(7, "approve"))
		Expect(err).To(MatchError(ContainSubstring("boom")))
		Expect(err).To(MatchError(ContainSubstring("handler panicked")))
		Expect(delivered.Load()).To(Equal(int32(1)))
	})

	It("ignores events nobody subscribed to", func() {
		Expect(bus.Publish(ctx, events.NewSessionEndedEvent(true))).To(Succeed())
	})

	It("runs async handlers until Wait returns", func() {
		var delivered atomic.Int32
		for i := 0; i < 3; i++ {
			bus.Subscribe(events.EventTypeSessionStarted, func(context.Context, events.Event) error {
				delivered.Add(1)
				return nil
			})
		}

		bus.PublishAsync(ctx, events.NewSessionStartedEvent("alice", "WorkMen"))
		bus.Wait()
		Expect(delivered.Load()).To(Equal(int32(3)))
	})
})
