package engine

import (
	"fmt"
	"time"
)

// TimeRange selects the reporting window for a snapshot. Short ranges bucket
// the trend series by day, long ranges by week.
type TimeRange string

const (
	RangeWeek    TimeRange = "7d"
	RangeMonth   TimeRange = "30d"
	RangeQuarter TimeRange = "90d"
	RangeYear    TimeRange = "365d"
)

func ParseTimeRange(raw string) (TimeRange, error) {
	switch TimeRange(raw) {
	case RangeWeek, RangeMonth, RangeQuarter, RangeYear:
		return TimeRange(raw), nil
	case "":
		return RangeMonth, nil
	default:
		return "", fmt.Errorf("unknown time range %q, must be one of 7d, 30d, 90d, 365d", raw)
	}
}

func (tr TimeRange) Days() int {
	switch tr {
	case RangeWeek:
		return 7
	case RangeQuarter:
		return 90
	case RangeYear:
		return 365
	default:
		return 30
	}
}

func (tr TimeRange) PeriodStart(now time.Time) time.Time {
	return now.AddDate(0, 0, -tr.Days())
}

func (tr TimeRange) UsesWeeklyBuckets() bool {
	return tr == RangeQuarter || tr == RangeYear
}
