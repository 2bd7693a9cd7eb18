package billingcycle

import (
	"testing"
	"time"
)

func TestCurrentCycle_TableTests(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		now    time.Time
		want   string
	}{
		{
			name:   "before anchor day belongs to previous month",
			anchor: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			want:   "2023-12-15",
		},
		{
			name:   "after anchor day belongs to current month",
			anchor: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			want:   "2024-01-15",
		},
		{
			name:   "exactly on anchor day",
			anchor: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want:   "2024-03-15",
		},
		{
			name:   "year rollover in january",
			anchor: time.Date(2023, 6, 20, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			want:   "2023-12-20",
		},
		{
			name:   "anchor day 31 clamped in february leap year",
			anchor: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			want:   "2024-02-29",
		},
		{
			name:   "anchor day 31 clamped in 30-day month",
			anchor: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
			want:   "2024-04-30",
		},
		{
			name:   "anchor day 1 always current month",
			anchor: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 7, 25, 0, 0, 0, 0, time.UTC),
			want:   "2024-07-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CurrentCycle(tt.anchor, tt.now)
			if got != tt.want {
				t.Errorf("CurrentCycle(%v, %v) = %s, want %s", tt.anchor, tt.now, got, tt.want)
			}
		})
	}
}

func TestNextResetDate_TableTests(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		now    time.Time
		want   time.Time
	}{
		{
			name:   "reset later this month",
			anchor: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "reset already passed, next month",
			anchor: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "exactly on reset day moves to next month",
			anchor: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "december rollover to january",
			anchor: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "anchor day 31 clamped to end of april",
			anchor: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			now:    time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
			want:   time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextResetDate(tt.anchor, tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextResetDate(%v, %v) = %v, want %v", tt.anchor, tt.now, got, tt.want)
			}
		})
	}
}
