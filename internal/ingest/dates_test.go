package ingest

import (
	"testing"
	"time"
)

func TestNormalizeAddedOn(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "future date rolls back a year",
			raw:  "04 Nov 1:18",
			want: time.Date(2023, 11, 4, 1, 18, 0, 0, time.UTC),
		},
		{
			name: "past date keeps current year",
			raw:  "04 Jan 1:18",
			want: time.Date(2024, 1, 4, 1, 18, 0, 0, time.UTC),
		},
		{
			name: "exactly now is not future",
			raw:  "15 Jun 12:30",
			want: now,
		},
		{
			name: "one minute after now rolls back",
			raw:  "15 Jun 12:31",
			want: time.Date(2023, 6, 15, 12, 31, 0, 0, time.UTC),
		},
		{
			name: "two digit hour",
			raw:  "01 Mar 23:05",
			want: time.Date(2024, 3, 1, 23, 5, 0, 0, time.UTC),
		},
		{
			name: "single digit day and lowercase month",
			raw:  "4 jan 1:18",
			want: time.Date(2024, 1, 4, 1, 18, 0, 0, time.UTC),
		},
		{
			name: "surrounding and repeated whitespace",
			raw:  "  04   Jan  1:18 ",
			want: time.Date(2024, 1, 4, 1, 18, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeAddedOn(tt.raw, now)
			if got == nil {
				t.Fatalf("NormalizeAddedOn(%q) = nil, want %v", tt.raw, tt.want)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("NormalizeAddedOn(%q) = %v, want %v", tt.raw, *got, tt.want)
			}
		})
	}
}

func TestNormalizeAddedOnInvalid(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"", "   ", "\t\n", "yesterday", "32 Nov 1:18", "04 Foo 1:18", "04 Nov 25:00", "04/11/2024"} {
		raw := raw
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			if got := NormalizeAddedOn(raw, now); got != nil {
				t.Fatalf("NormalizeAddedOn(%q) = %v, want nil", raw, *got)
			}
		})
	}
}

func TestNormalizeAddedOnLeapDayOutsideLeapYear(t *testing.T) {
	t.Parallel()

	// 29 Feb does not exist in 2026.
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	if got := NormalizeAddedOn("29 Feb 10:00", now); got != nil {
		t.Fatalf("NormalizeAddedOn() = %v, want nil", *got)
	}

	leapNow := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	got := NormalizeAddedOn("29 Feb 10:00", leapNow)
	want := time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("NormalizeAddedOn() = %v, want %v", got, want)
	}
}

func TestNormalizeAddedOnUsesLocationOfNow(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("IST", 5*60*60+30*60)
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, loc)

	got := NormalizeAddedOn("04 Jan 1:18", now)
	if got == nil {
		t.Fatal("expected parsed time")
	}
	want := time.Date(2024, 1, 4, 1, 18, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("NormalizeAddedOn() = %v, want %v", *got, want)
	}
}
