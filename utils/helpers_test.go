package utils

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		months int
		want   time.Time
	}{
		{"mid month", date(2026, time.March, 15), 1, date(2026, time.April, 15)},
		{"across year", date(2026, time.November, 10), 3, date(2027, time.February, 10)},
		{"jan 31 clamps to feb", date(2026, time.January, 31), 1, date(2026, time.February, 28)},
		{"jan 31 leap year", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"may 31 clamps to jun 30", date(2026, time.May, 31), 1, date(2026, time.June, 30)},
		{"twelve months keeps day", date(2026, time.February, 28), 12, date(2027, time.February, 28)},
		{"negative", date(2026, time.March, 31), -1, date(2026, time.February, 28)},
		{"negative across year", date(2026, time.January, 15), -2, date(2025, time.November, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonths(tt.start, tt.months)
			if !got.Equal(tt.want) {
				t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.start, tt.months, got, tt.want)
			}
		})
	}
}

func TestAddMonthsComposition(t *testing.T) {
	// Away from month end, one step of two months equals two steps
	// of one.
	mid := date(2026, time.March, 15)
	if got, want := AddMonths(AddMonths(mid, 1), 1), AddMonths(mid, 2); !got.Equal(want) {
		t.Errorf("stepwise = %v, single = %v", got, want)
	}

	// At month end the clamp makes the two diverge: the first step
	// loses the 31st and later steps start from the clamped day.
	jan31 := date(2026, time.January, 31)
	stepwise := AddMonths(AddMonths(jan31, 1), 1)
	single := AddMonths(jan31, 2)
	if !stepwise.Equal(date(2026, time.March, 28)) {
		t.Errorf("stepwise = %v, want 2026-03-28", stepwise)
	}
	if !single.Equal(date(2026, time.March, 31)) {
		t.Errorf("single = %v, want 2026-03-31", single)
	}
}

func TestAddMonthsPreservesClock(t *testing.T) {
	start := time.Date(2026, time.April, 10, 14, 30, 5, 0, time.UTC)
	got := AddMonths(start, 2)
	want := time.Date(2026, time.June, 10, 14, 30, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddMonths = %v, want %v", got, want)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2026, time.July, 4, 23, 59, 58, 123, time.FixedZone("KST", 9*3600))
	got := DateOnly(in)
	want := date(2026, time.July, 4)
	if !got.Equal(want) {
		t.Errorf("DateOnly = %v, want %v", got, want)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-09-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !got.Equal(date(2026, time.September, 1)) {
		t.Errorf("ParseDate = %v", got)
	}

	if _, err := ParseDate("09/01/2026"); err == nil {
		t.Error("ParseDate accepted a malformed date")
	}
}

func TestIsValidDispatchStatus(t *testing.T) {
	for _, s := range []string{"assigned", "in_progress", "completed", "cancelled"} {
		if !IsValidDispatchStatus(s) {
			t.Errorf("IsValidDispatchStatus(%q) = false", s)
		}
	}
	if IsValidDispatchStatus("done") {
		t.Error("IsValidDispatchStatus accepted unknown status")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword("secret123", hash); err != nil {
		t.Errorf("CheckPassword rejected correct password: %v", err)
	}
	if err := CheckPassword("wrong", hash); err == nil {
		t.Error("CheckPassword accepted wrong password")
	}
}
