package frontend

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"

	"dewpoint.dev/monitor/pkg/dewpoint"
	"dewpoint.dev/monitor/pkg/sensor"
	"dewpoint.dev/monitor/pkg/series"
)

// Chart geometry. Keep in sync with the svg viewBox in views.templ.
const (
	chartWidth   = 720
	chartHeight  = 240
	chartPadding = 8
)

// pageData is everything the index page shows.
type pageData struct {
	Snapshot Snapshot
	Chart    Chart
	Options  []series.RangeOption
}

type cardValue struct {
	label string
	value string
}

// readingValues formats the cards shown for the current reading.
func readingValues(r *sensor.Reading) []cardValue {
	return []cardValue{
		{"Indoor", formatTemp(r.IndoorTemp)},
		{"Outdoor", formatTemp(r.OutdoorTemp)},
		{"Humidity", fmt.Sprintf("%.1f %%", r.Humidity)},
		{"Dew point", formatTemp(r.DewPoint)},
		{"Spread", formatTemp(dewpoint.Spread(r.IndoorTemp, r.DewPoint))},
	}
}

func rangeHref(opt series.RangeOption) templ.SafeURL {
	return templ.SafeURL("/?range=" + url.QueryEscape(string(opt.Range)))
}

func fanSince(fan *sensor.FanStatus) string {
	return fan.UpdatedAt.Local().Format(time.TimeOnly)
}

type polyline struct {
	class  string
	points string
}

// polylines scales indoor, outdoor and dew point series into the chart's viewBox.
func polylines(points []sensor.Reading) []polyline {
	channels := []struct {
		class string
		value func(sensor.Reading) float64
	}{
		{"indoor", func(r sensor.Reading) float64 { return r.IndoorTemp }},
		{"outdoor", func(r sensor.Reading) float64 { return r.OutdoorTemp }},
		{"dew-point", func(r sensor.Reading) float64 { return r.DewPoint }},
	}

	lo, hi := points[0].IndoorTemp, points[0].IndoorTemp
	for _, r := range points {
		for _, ch := range channels {
			v := ch.value(r)
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}

	start := points[0].Millis()
	span := points[len(points)-1].Millis() - start
	if span == 0 {
		span = 1
	}

	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)

	out := make([]polyline, 0, len(channels))
	for _, ch := range channels {
		var b strings.Builder
		for i, r := range points {
			x := chartPadding + plotW*float64(r.Millis()-start)/float64(span)
			y := chartPadding + plotH*(1-(ch.value(r)-lo)/(hi-lo))
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.1f,%.1f", x, y)
		}
		out = append(out, polyline{class: ch.class, points: b.String()})
	}
	return out
}

func formatTemp(v float64) string {
	return fmt.Sprintf("%.1f °C", v)
}

func lastUpdated(s Snapshot) string {
	if s.Current == nil {
		return "never"
	}
	return s.Current.Timestamp.Local().Format(time.DateTime)
}
