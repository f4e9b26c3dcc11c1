package engine

import (
	"strconv"
	"strings"
	"time"

	"bizpulse/pkg/model"
)

// Epoch values above this threshold are taken as milliseconds, below as
// seconds. The portal never documented which unit it sends, so both occur in
// the wild; 10^10 seconds is year 2286, far past any plausible booking.
const epochMsThreshold = 10_000_000_000

// distantPast marks a record whose date could not be resolved. It sorts
// before every real date, so range filters exclude such records without
// anything ever failing.
var distantPast = time.Time{}

// EpochToTime interprets a raw portal epoch using the unit heuristic above.
func EpochToTime(v int64) time.Time {
	if v > epochMsThreshold {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

// ResolveBookingDate finds the best available date for a booking request.
// Fallback chain: creation epoch, then the requested start parsed as RFC3339
// with fractional seconds, without, then as a raw numeric epoch. Unparsable
// records resolve to the distant past and are excluded from bounded windows.
func ResolveBookingDate(r *model.BookingRequest) time.Time {
	if r.CreatedAtMs > 0 {
		return EpochToTime(r.CreatedAtMs)
	}

	raw := strings.TrimSpace(r.RequestedStart)
	if raw == "" {
		return distantPast
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	if epoch, err := strconv.ParseFloat(raw, 64); err == nil && epoch > 0 {
		return EpochToTime(int64(epoch))
	}

	return distantPast
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStart truncates to the Monday beginning the week containing t.
func weekStart(t time.Time) time.Time {
	day := dayStart(t)
	offset := (int(day.Weekday()) - int(time.Monday) + 7) % 7
	return day.AddDate(0, 0, -offset)
}
