package backend_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dewpoint.dev/monitor/internal/backend"
	"dewpoint.dev/monitor/pkg/sensor"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *backend.Store
		base  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = openTestStore(newTestLogger())
		base = time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC)
	})

	It("should reject a nil database", func() {
		s, err := backend.NewStore(nil, nil)
		Expect(err).To(MatchError("database cannot be nil"))
		Expect(s).To(BeNil())
	})

	Describe("Upsert", func() {
		It("should be idempotent for the same reading", func() {
			r := readingAt(base, 21.2)

			Expect(store.Upsert(ctx, r)).To(Succeed())
			Expect(store.Upsert(ctx, r)).To(Succeed())

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(Equal([]sensor.Reading{r}))
		})

		It("should replace a reading with the same timestamp", func() {
			Expect(store.Upsert(ctx, readingAt(base, 21.2))).To(Succeed())
			Expect(store.Upsert(ctx, readingAt(base, 23.9))).To(Succeed())

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].IndoorTemp).To(Equal(23.9))
		})

		It("should keep millisecond precision", func() {
			ts := base.Add(1234 * time.Millisecond)
			Expect(store.Upsert(ctx, readingAt(ts, 20))).To(Succeed())

			latest, err := store.Latest(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Timestamp).To(Equal(ts))
		})
	})

	Describe("Latest", func() {
		It("should return nil for an empty store", func() {
			latest, err := store.Latest(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(BeNil())
		})

		It("should return the newest reading regardless of insertion order", func() {
			Expect(store.Upsert(ctx, readingAt(base.Add(2*time.Hour), 3))).To(Succeed())
			Expect(store.Upsert(ctx, readingAt(base, 1))).To(Succeed())

			latest, err := store.Latest(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.IndoorTemp).To(Equal(3.0))
		})
	})

	Describe("All", func() {
		It("should return ascending timestamp order", func() {
			for _, offset := range []int{5, 1, 3, 2, 4} {
				Expect(store.Upsert(ctx, readingAt(base.Add(time.Duration(offset)*time.Hour), float64(offset)))).To(Succeed())
			}

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(5))
			for i := 1; i < len(all); i++ {
				Expect(all[i].Timestamp.After(all[i-1].Timestamp)).To(BeTrue())
			}
		})
	})

	Describe("Range", func() {
		BeforeEach(func() {
			for i := 0; i < 6; i++ {
				Expect(store.Upsert(ctx, readingAt(base.Add(time.Duration(i)*time.Hour), float64(i)))).To(Succeed())
			}
		})

		It("should include both bounds", func() {
			readings, err := store.Range(ctx, base.Add(time.Hour), base.Add(3*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(readings).To(HaveLen(3))
			Expect(readings[0].IndoorTemp).To(Equal(1.0))
			Expect(readings[2].IndoorTemp).To(Equal(3.0))
		})

		It("should treat zero bounds as open", func() {
			from, err := store.Range(ctx, base.Add(4*time.Hour), time.Time{})
			Expect(err).NotTo(HaveOccurred())
			Expect(from).To(HaveLen(2))

			until, err := store.Range(ctx, time.Time{}, base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(until).To(HaveLen(2))
		})
	})

	Describe("PruneOlderThan", func() {
		It("should delete strictly older readings and keep the cutoff", func() {
			for i := 0; i < 4; i++ {
				Expect(store.Upsert(ctx, readingAt(base.Add(time.Duration(i)*time.Hour), float64(i)))).To(Succeed())
			}

			pruned, err := store.PruneOlderThan(ctx, base.Add(2*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(pruned).To(Equal(int64(2)))

			all, err := store.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
			Expect(all[0].Timestamp).To(Equal(base.Add(2 * time.Hour)))
		})

		It("should be a no-op when nothing is old enough", func() {
			Expect(store.Upsert(ctx, readingAt(base, 1))).To(Succeed())

			pruned, err := store.PruneOlderThan(ctx, base.Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(pruned).To(BeZero())
		})
	})

	Describe("SeedIfEmpty", func() {
		build := func() []sensor.Reading {
			readings := make([]sensor.Reading, 0, 400)
			for i := 0; i < 400; i++ {
				readings = append(readings, readingAt(base.Add(time.Duration(i)*time.Hour), 20))
			}
			return readings
		}

		It("should insert every reading into an empty store", func() {
			n, err := store.SeedIfEmpty(ctx, build)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(400))

			count, err := store.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(400)))
		})

		It("should not call build when readings exist", func() {
			Expect(store.Upsert(ctx, readingAt(base, 20))).To(Succeed())

			called := false
			n, err := store.SeedIfEmpty(ctx, func() []sensor.Reading {
				called = true
				return build()
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(called).To(BeFalse())
		})

		It("should leave the store empty when the insert fails", func() {
			n, err := store.SeedIfEmpty(ctx, func() []sensor.Reading {
				readings := build()
				// duplicate keys in one batch violate the primary key
				readings[len(readings)-1] = readings[0]
				return readings
			})

			Expect(err).To(HaveOccurred())
			Expect(n).To(BeZero())

			count, err := store.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should fail on a canceled context", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := store.SeedIfEmpty(canceled, build)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Transaction", func() {
		It("should roll back every write when fn fails", func() {
			boom := errors.New("boom")

			err := store.Transaction(ctx, func(tx backend.ReadingStore) error {
				Expect(tx.Upsert(ctx, readingAt(base, 20))).To(Succeed())
				return boom
			})
			Expect(err).To(MatchError(boom))

			count, err := store.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should commit when fn succeeds", func() {
			Expect(store.Transaction(ctx, func(tx backend.ReadingStore) error {
				return tx.Upsert(ctx, readingAt(base, 20))
			})).To(Succeed())

			count, err := store.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Describe("Ping", func() {
		It("should reach the database", func() {
			Expect(store.Ping(ctx)).To(Succeed())
		})
	})
})
