package dewpoint_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dewpoint.dev/monitor/pkg/dewpoint"
	"dewpoint.dev/monitor/pkg/sensor"
)

var _ = Describe("Calculate", func() {
	It("should match the Magnus-Tetens value for 21°C at 55%", func() {
		Expect(dewpoint.Calculate(21, 55)).To(BeNumerically("~", 11.6, 0.05))
	})

	It("should equal the temperature at saturation", func() {
		Expect(dewpoint.Calculate(18.5, 100)).To(BeNumerically("~", 18.5, 1e-9))
	})

	It("should never exceed the temperature", func() {
		for t := -10.0; t <= 32; t += 0.5 {
			for rh := 1.0; rh <= 100; rh += 1 {
				Expect(dewpoint.Calculate(t, rh)).To(BeNumerically("<=", t+1e-9))
			}
		}
	})

	It("should be non-decreasing in relative humidity", func() {
		for _, t := range []float64{-5, 0, 12, 21, 30} {
			prev := dewpoint.Calculate(t, 1)
			for rh := 2.0; rh <= 100; rh++ {
				next := dewpoint.Calculate(t, rh)
				Expect(next).To(BeNumerically(">=", prev))
				prev = next
			}
		}
	})
})

var _ = Describe("Advise", func() {
	reading := func(indoor, outdoor, dew float64) *sensor.Reading {
		return &sensor.Reading{
			Timestamp:   time.Now(),
			IndoorTemp:  indoor,
			OutdoorTemp: outdoor,
			Humidity:    55,
			DewPoint:    dew,
		}
	}

	DescribeTable("ventilation levels",
		func(r *sensor.Reading, expected dewpoint.Level) {
			Expect(dewpoint.Advise(r).Level).To(Equal(expected))
		},
		Entry("no reading yet", nil, dewpoint.LevelWaiting),
		Entry("indoor close to dew point", reading(20, 10, 18.5), dewpoint.LevelAvoid),
		Entry("cooler outside", reading(21, 12, 11.6), dewpoint.LevelGood),
		Entry("warmer outside", reading(21, 25, 11.6), dewpoint.LevelNeutral),
	)

	It("should prefer the condensation warning over cooler outdoor air", func() {
		advice := dewpoint.Advise(reading(19, 5, 17.5))
		Expect(advice.Level).To(Equal(dewpoint.LevelAvoid))
		Expect(advice.Title).NotTo(BeEmpty())
	})
})
