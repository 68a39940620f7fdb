package backend_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dewpoint.dev/monitor/internal/backend"
)

var _ = Describe("FanState", func() {
	start := time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC)

	It("should start stopped", func() {
		fan := backend.NewFanState(func() time.Time { return start })

		status := fan.Status()
		Expect(status.Running).To(BeFalse())
		Expect(status.UpdatedAt).To(Equal(start))
	})

	It("should flip on every toggle and stamp the change", func() {
		fan := backend.NewFanState(stepClock(start, time.Minute))

		first := fan.Toggle()
		Expect(first.Running).To(BeTrue())
		Expect(first.UpdatedAt).To(Equal(start.Add(time.Minute)))

		second := fan.Toggle()
		Expect(second.Running).To(BeFalse())
		Expect(fan.Status()).To(Equal(second))
	})

	It("should keep independent instances apart", func() {
		a := backend.NewFanState(nil)
		b := backend.NewFanState(nil)

		a.Toggle()

		Expect(a.Status().Running).To(BeTrue())
		Expect(b.Status().Running).To(BeFalse())
	})

	It("should end stopped after an even number of concurrent toggles", func() {
		fan := backend.NewFanState(nil)

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fan.Toggle()
				_ = fan.Status()
			}()
		}
		wg.Wait()

		Expect(fan.Status().Running).To(BeFalse())
	})
})
