package events_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dewpoint.dev/monitor/pkg/events"
	"dewpoint.dev/monitor/pkg/sensor"
)

var _ = Describe("Event", func() {
	now := time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)

	It("should encode a reading event as JSON with its type", func() {
		reading := sensor.Reading{Timestamp: now, IndoorTemp: 21.3, OutdoorTemp: 14.1, Humidity: 56.2, DewPoint: 12.2}

		msg, err := events.ReadingCreated(reading, now).Message()

		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Type).To(Equal("reading.created"))
		Expect(msg.ContentType).To(Equal("application/json"))
		Expect(string(msg.Body)).To(ContainSubstring(`"indoorTemp":21.3`))

		decoded, err := events.Decode(msg.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Reading).NotTo(BeNil())
		Expect(*decoded.Reading).To(Equal(reading))
	})

	It("should carry the fan status", func() {
		msg, err := events.FanToggled(sensor.FanStatus{Running: true, UpdatedAt: now}, now).Message()
		Expect(err).NotTo(HaveOccurred())

		decoded, err := events.Decode(msg.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Type).To(Equal(events.TypeFanToggled))
		Expect(decoded.Fan.Running).To(BeTrue())
	})

	DescribeTable("rejecting malformed payloads",
		func(body string) {
			_, err := events.Decode([]byte(body))
			Expect(err).To(MatchError(events.ErrInvalidEvent))
		},
		Entry("not JSON", `nope`),
		Entry("unknown type", `{"type":"door.opened"}`),
		Entry("reading event without reading", `{"type":"reading.created"}`),
		Entry("fan event without status", `{"type":"fan.toggled","reading":{}}`),
	)

	It("should refuse to encode an incomplete event", func() {
		_, err := events.Event{Type: events.TypeReadingCreated}.Message()
		Expect(err).To(MatchError(events.ErrInvalidEvent))
	})
})
