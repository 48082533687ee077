package timezone_test

import (
	"testing"
	"time"

	"roost/shared/constant"
	"roost/shared/timezone"
)

func TestNow(t *testing.T) {
	now := timezone.Now()

	if now.IsZero() {
		t.Error("expected a non-zero time")
	}

	if time.Since(now) > time.Minute {
		t.Error("expected Now to be close to wall clock time")
	}
}

func TestParse(t *testing.T) {
	parsed, err := timezone.Parse(constant.DayFormat, "2025-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.Year() != 2025 || parsed.Month() != time.September || parsed.Day() != 1 {
		t.Errorf("expected 2025-09-01, got %v", parsed)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	parsed, err := timezone.Parse(constant.DayFormat, "2025-09-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	formatted := timezone.Format(parsed, constant.DayFormat)
	if formatted != "2025-09-05" {
		t.Errorf("expected 2025-09-05, got %s", formatted)
	}
}
