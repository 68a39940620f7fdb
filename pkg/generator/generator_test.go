package generator_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dewpoint.dev/monitor/pkg/dewpoint"
	"dewpoint.dev/monitor/pkg/generator"
	"dewpoint.dev/monitor/pkg/sensor"
)

// fixedNoise always returns the same fraction of the requested range.
type fixedNoise float64

func (f fixedNoise) Float64Range(min, max float64) float64 {
	return min + (max-min)*float64(f)
}

var _ = Describe("Generator", func() {
	var ts time.Time

	BeforeEach(func() {
		ts = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	})

	Context("cold start", func() {
		It("should start every channel at its baseline when noise is zero", func() {
			gen := generator.New(fixedNoise(0.5))

			reading := gen.Next(nil, ts, 0)

			Expect(reading.IndoorTemp).To(Equal(21.0))
			Expect(reading.OutdoorTemp).To(Equal(12.0))
			Expect(reading.Humidity).To(Equal(55.0))
			Expect(reading.DewPoint).To(Equal(sensor.Round1(dewpoint.Calculate(21, 55))))
			Expect(reading.Timestamp).To(Equal(ts))
		})

		It("should shift temperature baselines by the seasonal bias", func() {
			gen := generator.New(fixedNoise(0.5))

			reading := gen.Next(nil, ts, 4)

			Expect(reading.IndoorTemp).To(Equal(sensor.Round1(21 + 4*0.35)))
			Expect(reading.OutdoorTemp).To(Equal(16.0))
			Expect(reading.Humidity).To(Equal(55.0))
		})
	})

	Context("chained readings", func() {
		It("should revert toward the baseline", func() {
			gen := generator.New(fixedNoise(0.5))
			prev := &sensor.Reading{Timestamp: ts, IndoorTemp: 25, OutdoorTemp: 2, Humidity: 85}

			next := gen.Next(prev, ts.Add(time.Hour), 0)

			Expect(next.IndoorTemp).To(Equal(24.2))
			Expect(next.OutdoorTemp).To(Equal(4.0))
			Expect(next.Humidity).To(Equal(80.5))
		})

		It("should clamp values to the upper edge of their channel ranges", func() {
			gen := generator.New(fixedNoise(1))
			prev := &sensor.Reading{Timestamp: ts, IndoorTemp: 26, OutdoorTemp: 32, Humidity: 95}

			next := gen.Next(prev, ts.Add(time.Hour), 40)

			Expect(next.IndoorTemp).To(Equal(26.0))
			Expect(next.OutdoorTemp).To(Equal(32.0))
			Expect(next.Humidity).To(Equal(90.0))
		})

		It("should clamp values to the lower edge of their channel ranges", func() {
			gen := generator.New(fixedNoise(0))
			prev := &sensor.Reading{Timestamp: ts, IndoorTemp: 16, OutdoorTemp: -12, Humidity: 25}

			next := gen.Next(prev, ts.Add(time.Hour), -40)

			Expect(next.IndoorTemp).To(Equal(17.0))
			Expect(next.OutdoorTemp).To(Equal(-10.0))
			Expect(next.Humidity).To(Equal(30.0))
		})

		It("should round all values to one decimal", func() {
			gen := generator.NewSeeded(42)
			var prev *sensor.Reading
			for i := 0; i < 200; i++ {
				next := gen.Next(prev, ts.Add(time.Duration(i)*time.Hour), generator.SeasonalBias(ts))
				for _, v := range []float64{next.IndoorTemp, next.OutdoorTemp, next.Humidity, next.DewPoint} {
					Expect(v).To(BeNumerically("~", math.Round(v*10)/10, 1e-9))
				}
				prev = &next
			}
		})

		It("should keep every channel in bounds over 10,000 steps", func() {
			gen := generator.NewSeeded(7)
			var prev *sensor.Reading
			current := ts
			for i := 0; i < 10000; i++ {
				next := gen.Next(prev, current, generator.SeasonalBias(current))
				Expect(next.IndoorTemp).To(BeNumerically(">=", 17))
				Expect(next.IndoorTemp).To(BeNumerically("<=", 26))
				Expect(next.OutdoorTemp).To(BeNumerically(">=", -10))
				Expect(next.OutdoorTemp).To(BeNumerically("<=", 32))
				Expect(next.Humidity).To(BeNumerically(">=", 30))
				Expect(next.Humidity).To(BeNumerically("<=", 90))
				Expect(next.DewPoint).To(BeNumerically("<=", next.IndoorTemp+0.1))
				prev = &next
				current = current.Add(time.Hour)
			}
		})

		It("should be reproducible for the same seed", func() {
			a := generator.NewSeeded(99).Backfill(ts, ts.Add(24*time.Hour), time.Hour, nil)
			b := generator.NewSeeded(99).Backfill(ts, ts.Add(24*time.Hour), time.Hour, nil)
			Expect(a).To(Equal(b))
		})
	})

	Context("timestamps", func() {
		It("should truncate to millisecond precision in UTC", func() {
			gen := generator.New(fixedNoise(0.5))
			local := time.Date(2024, time.March, 10, 13, 0, 0, 123456789, time.FixedZone("CET", 3600))

			reading := gen.Next(nil, local, 0)

			Expect(reading.Timestamp.Location()).To(Equal(time.UTC))
			Expect(reading.Timestamp.Nanosecond()).To(Equal(123000000))
			Expect(reading.Timestamp.Equal(local.Truncate(time.Millisecond))).To(BeTrue())
		})
	})
})

var _ = Describe("Backfill", func() {
	It("should emit 49 hourly readings over two days", func() {
		end := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)
		start := end.Add(-48 * time.Hour)

		readings := generator.NewSeeded(1).Backfill(start, end, time.Hour, nil)

		Expect(readings).To(HaveLen(49))
		Expect(readings[0].Timestamp).To(Equal(start))
		Expect(readings[48].Timestamp).To(Equal(end))
		for i := 1; i < len(readings); i++ {
			Expect(readings[i].Millis() - readings[i-1].Millis()).To(Equal(int64(3_600_000)))
		}
	})

	It("should chain each reading from the previous one", func() {
		start := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
		prev := &sensor.Reading{Timestamp: start.Add(-time.Hour), IndoorTemp: 25, OutdoorTemp: 2, Humidity: 85}

		readings := generator.New(fixedNoise(0.5)).Backfill(start, start.Add(time.Hour), time.Hour, prev)

		Expect(readings).To(HaveLen(2))
		Expect(readings[1].Humidity).To(BeNumerically("<", readings[0].Humidity))
		Expect(readings[0].Humidity).To(BeNumerically("<", 85))
	})

	It("should return nothing for an inverted window", func() {
		now := time.Now()
		Expect(generator.NewSeeded(1).Backfill(now, now.Add(-time.Hour), time.Hour, nil)).To(BeEmpty())
	})

	It("should return nothing for a non-positive step", func() {
		now := time.Now()
		Expect(generator.NewSeeded(1).Backfill(now, now.Add(time.Hour), 0, nil)).To(BeEmpty())
	})
})

var _ = Describe("SeasonalBias", func() {
	It("should be zero on the first of January", func() {
		Expect(generator.SeasonalBias(time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC))).To(BeNumerically("~", 0, 1e-9))
	})

	It("should peak at the amplitude a quarter into the year", func() {
		quarter := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC).Add(365 * 24 * time.Hour / 4)
		Expect(generator.SeasonalBias(quarter)).To(BeNumerically("~", 6, 1e-9))
	})

	It("should stay within the amplitude", func() {
		day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 366; i++ {
			bias := generator.SeasonalBias(day.AddDate(0, 0, i))
			Expect(math.Abs(bias)).To(BeNumerically("<=", 6))
		}
	})

	It("should use the location of the given time", func() {
		zone := time.FixedZone("UTC+5", 5*3600)
		Expect(generator.SeasonalBias(time.Date(2023, time.January, 1, 0, 0, 0, 0, zone))).To(BeNumerically("~", 0, 1e-9))
	})
})
