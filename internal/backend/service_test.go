package backend_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dewpoint.dev/monitor/internal/backend"
	"dewpoint.dev/monitor/pkg/events"
	"dewpoint.dev/monitor/pkg/generator"
	"dewpoint.dev/monitor/pkg/sensor"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(ev events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Events() []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]events.Event(nil), n.events...)
}

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		store    *backend.Store
		notifier *recordingNotifier
		now      time.Time
	)

	newService := func(clock func() time.Time) *backend.Service {
		svc, err := backend.NewService(backend.ServiceConfig{
			Store:     store,
			Generator: generator.NewSeeded(11),
			Logger:    newTestLogger(),
			Notifier:  notifier,
			Clock:     clock,
		})
		Expect(err).NotTo(HaveOccurred())
		return svc
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = openTestStore(newTestLogger())
		notifier = &recordingNotifier{}
		now = time.Date(2024, time.October, 5, 14, 30, 0, 0, time.UTC)
	})

	Describe("NewService", func() {
		DescribeTable("missing dependencies",
			func(mutate func(*backend.ServiceConfig), message string) {
				cfg := backend.ServiceConfig{
					Store:     store,
					Generator: generator.NewSeeded(1),
					Logger:    newTestLogger(),
				}
				mutate(&cfg)
				svc, err := backend.NewService(cfg)
				Expect(err).To(MatchError(message))
				Expect(svc).To(BeNil())
			},
			Entry("store", func(c *backend.ServiceConfig) { c.Store = nil }, "store cannot be nil"),
			Entry("generator", func(c *backend.ServiceConfig) { c.Generator = nil }, "generator cannot be nil"),
			Entry("logger", func(c *backend.ServiceConfig) { c.Logger = nil }, "logger cannot be nil"),
		)
	})

	Describe("Current", func() {
		It("should start from baseline values on an empty store", func() {
			svc := newService(func() time.Time { return now })

			reading, err := svc.Current(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(reading.Timestamp).To(Equal(now))
			Expect(reading.IndoorTemp).To(BeNumerically("~", 21+0.35*generator.SeasonalBias(now), 0.5))
			Expect(reading.Humidity).To(BeNumerically("~", 55, 1.6))

			latest, err := store.Latest(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(*latest).To(Equal(reading))
		})

		It("should chain from the latest stored reading", func() {
			Expect(store.Upsert(ctx, sensor.Reading{
				Timestamp:   now.Add(-time.Hour),
				IndoorTemp:  25.5,
				OutdoorTemp: 30,
				Humidity:    88,
				DewPoint:    23.3,
			})).To(Succeed())
			svc := newService(func() time.Time { return now })

			reading, err := svc.Current(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(reading.Humidity).To(BeNumerically(">", 80))
			Expect(reading.IndoorTemp).To(BeNumerically(">", 23.5))
		})

		It("should prune readings older than one year", func() {
			old := readingAt(now.AddDate(-1, 0, 0).Add(-time.Minute), 20)
			boundary := readingAt(now.AddDate(-1, 0, 0), 20)
			Expect(store.Upsert(ctx, old)).To(Succeed())
			Expect(store.Upsert(ctx, boundary)).To(Succeed())
			svc := newService(func() time.Time { return now })

			_, err := svc.Current(ctx)
			Expect(err).NotTo(HaveOccurred())

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].Timestamp).To(Equal(boundary.Timestamp))
		})

		It("should notify about every stored reading", func() {
			svc := newService(func() time.Time { return now })

			reading, err := svc.Current(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(notifier.Events()).To(HaveLen(1))
			Expect(notifier.Events()[0].Type).To(Equal(events.TypeReadingCreated))
			Expect(*notifier.Events()[0].Reading).To(Equal(reading))
		})

		It("should serialize concurrent callers", func() {
			svc := newService(stepClock(now, time.Second))

			const callers = 20
			var wg sync.WaitGroup
			errs := make(chan error, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.Current(ctx)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(callers))
			Expect(all[callers-1].Timestamp).To(Equal(now.Add((callers - 1) * time.Second)))
		})

		It("should propagate store failures", func() {
			svc := newService(func() time.Time { return now })
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := svc.Current(canceled)

			Expect(err).To(MatchError(ContainSubstring("failed to produce current reading")))
			Expect(notifier.Events()).To(BeEmpty())
		})
	})

	Describe("Seed", func() {
		It("should backfill a year of hourly readings once", func() {
			svc := newService(func() time.Time { return now })

			n, err := svc.Seed(ctx)
			Expect(err).NotTo(HaveOccurred())

			expected := int(now.Sub(now.AddDate(-1, 0, 0))/time.Hour) + 1
			Expect(n).To(Equal(expected))

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(expected))
			Expect(all[0].Timestamp).To(Equal(now.AddDate(-1, 0, 0)))
			Expect(all[len(all)-1].Timestamp).To(Equal(now))
			for i := 1; i < len(all); i++ {
				Expect(all[i].Millis() - all[i-1].Millis()).To(Equal(int64(3_600_000)))
			}

			again, err := svc.Seed(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeZero())
		})

		It("should keep every seeded reading within channel bounds", func() {
			svc := newService(func() time.Time { return now })
			_, err := svc.Seed(ctx)
			Expect(err).NotTo(HaveOccurred())

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			for _, r := range all {
				Expect(r.IndoorTemp).To(BeNumerically(">=", 17))
				Expect(r.IndoorTemp).To(BeNumerically("<=", 26))
				Expect(r.OutdoorTemp).To(BeNumerically(">=", -10))
				Expect(r.OutdoorTemp).To(BeNumerically("<=", 32))
				Expect(r.Humidity).To(BeNumerically(">=", 30))
				Expect(r.Humidity).To(BeNumerically("<=", 90))
			}
		})

		It("should write nothing when the context is canceled", func() {
			svc := newService(func() time.Time { return now })
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			n, err := svc.Seed(canceled)
			Expect(err).To(HaveOccurred())
			Expect(n).To(BeZero())

			count, err := store.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})
	})

	Describe("History", func() {
		BeforeEach(func() {
			for i := 0; i < 72; i++ {
				Expect(store.Upsert(ctx, readingAt(now.Add(-time.Duration(i)*time.Hour), 20))).To(Succeed())
			}
		})

		It("should return the bounded window", func() {
			svc := newService(func() time.Time { return now })

			readings, err := svc.History(ctx, now.Add(-5*time.Hour), now)
			Expect(err).NotTo(HaveOccurred())
			Expect(readings).To(HaveLen(6))
		})

		It("should return the delta window including the following day", func() {
			svc := newService(func() time.Time { return now })

			readings, err := svc.HistoryDelta(ctx, now.Add(-24*time.Hour), 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(readings).To(HaveLen(49))
		})

		It("should reject negative day counts", func() {
			svc := newService(func() time.Time { return now })

			_, err := svc.HistoryDelta(ctx, now, -1)
			Expect(err).To(HaveOccurred())
		})
	})
})
