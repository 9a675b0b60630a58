package utils

import (
	"fmt"
	"time"
	_ "time/tzdata" // Asia/Kolkata must resolve on hosts without a zoneinfo database
)

// DateLayout is the YYYY-MM-DD wire format of calendar dates.
const DateLayout = "2006-01-02"

// TimeFrame is a bucketing granularity for time series.
type TimeFrame string

const (
	TimeFrameDaily   TimeFrame = "daily"
	TimeFrameMonthly TimeFrame = "monthly"
	TimeFrameYearly  TimeFrame = "yearly"
)

// ParseTimeFrame maps "" to fallback and rejects unknown values.
func ParseTimeFrame(s string, fallback TimeFrame) (TimeFrame, error) {
	switch TimeFrame(s) {
	case "":
		return fallback, nil
	case TimeFrameDaily, TimeFrameMonthly, TimeFrameYearly:
		return TimeFrame(s), nil
	}
	return "", fmt.Errorf("unknown time frame %q", s)
}

// MongoFormat is the $dateToString format producing PeriodKey's keys.
func (tf TimeFrame) MongoFormat() string {
	switch tf {
	case TimeFrameMonthly:
		return "%Y-%m"
	case TimeFrameYearly:
		return "%Y"
	default:
		return "%Y-%m-%d"
	}
}

// PeriodKey formats t (in its own location) as the bucket key for tf.
func (tf TimeFrame) PeriodKey(t time.Time) string {
	switch tf {
	case TimeFrameMonthly:
		return t.Format("2006-01")
	case TimeFrameYearly:
		return t.Format("2006")
	default:
		return t.Format(DateLayout)
	}
}

// Periods lists every bucket key from start to end inclusive, in order.
func (tf TimeFrame) Periods(start, end time.Time) []string {
	var keys []string
	cur := tf.truncate(start)
	for !cur.After(end) {
		keys = append(keys, tf.PeriodKey(cur))
		switch tf {
		case TimeFrameMonthly:
			cur = cur.AddDate(0, 1, 0)
		case TimeFrameYearly:
			cur = cur.AddDate(1, 0, 0)
		default:
			cur = cur.AddDate(0, 0, 1)
		}
	}
	return keys
}

func (tf TimeFrame) truncate(t time.Time) time.Time {
	switch tf {
	case TimeFrameMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case TimeFrameYearly:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	default:
		return StartOfDay(t)
	}
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day in its location.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DateRange is an inclusive [Start, End] window. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses optional YYYY-MM-DD bounds, extending End to the end of its day.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, err := ParseDate(start)
		if err != nil {
			return r, fmt.Errorf("invalid startDate: %w", err)
		}
		r.Start = t
	}
	if end != "" {
		t, err := ParseDate(end)
		if err != nil {
			return r, fmt.Errorf("invalid endDate: %w", err)
		}
		r.End = EndOfDay(t)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return r, fmt.Errorf("startDate must not be after endDate")
	}
	return r, nil
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

var indiaLocation = mustLoadLocation("Asia/Kolkata")

// IndiaLocation is the Asia/Kolkata zone budgets and work timestamps are shown in.
func IndiaLocation() *time.Location {
	return indiaLocation
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load location %s: %v", name, err))
	}
	return loc
}
