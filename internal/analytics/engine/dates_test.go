package engine

import (
	"testing"
	"time"

	"bizpulse/pkg/model"
)

func TestResolveBookingDate(t *testing.T) {
	tests := []struct {
		name    string
		request *model.BookingRequest
		want    time.Time
	}{
		{
			name:    "epoch milliseconds",
			request: &model.BookingRequest{CreatedAtMs: 1767225600000},
			want:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "epoch seconds below threshold",
			request: &model.BookingRequest{CreatedAtMs: 1767225600},
			want:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "creation epoch wins over requested start",
			request: &model.BookingRequest{CreatedAtMs: 1767225600000, RequestedStart: "2020-06-01T00:00:00Z"},
			want:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "requested start with fractional seconds",
			request: &model.BookingRequest{RequestedStart: "2026-02-03T10:30:00.250Z"},
			want:    time.Date(2026, 2, 3, 10, 30, 0, 250_000_000, time.UTC),
		},
		{
			name:    "requested start plain rfc3339",
			request: &model.BookingRequest{RequestedStart: "2026-02-03T10:30:00+02:00"},
			want:    time.Date(2026, 2, 3, 8, 30, 0, 0, time.UTC),
		},
		{
			name:    "requested start as numeric epoch string",
			request: &model.BookingRequest{RequestedStart: "1767225600"},
			want:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "unparsable requested start",
			request: &model.BookingRequest{RequestedStart: "next tuesday"},
			want:    distantPast,
		},
		{
			name:    "nothing at all",
			request: &model.BookingRequest{},
			want:    distantPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBookingDate(tt.request)
			if !got.Equal(tt.want) {
				t.Errorf("ResolveBookingDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},  // Sunday
		{time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},     // Monday itself
		{time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)},    // midweek
	}

	for _, tt := range tests {
		if got := weekStart(tt.in); !got.Equal(tt.want) {
			t.Errorf("weekStart(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDayStart(t *testing.T) {
	in := time.Date(2026, 3, 15, 23, 59, 59, 0, time.FixedZone("EET", 2*3600))
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := dayStart(in); !got.Equal(want) {
		t.Errorf("dayStart(%v) = %v, want %v", in, got, want)
	}
}
