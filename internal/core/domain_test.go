package core

import (
	"errors"
	"testing"
)

func TestActivityValidate(t *testing.T) {
	good := Activity{Name: "Morning workout", Category: Exercise, Duration: 60}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		a    Activity
		want error
	}{
		{Activity{Name: "", Category: Work, Duration: 60}, ErrEmptyName},
		{Activity{Name: "   ", Category: Work, Duration: 60}, ErrEmptyName},
		{Activity{Name: "x", Category: Work, Duration: 0}, ErrInvalidDuration},
		{Activity{Name: "x", Category: Work, Duration: -5}, ErrInvalidDuration},
		{Activity{Name: "x", Category: Work, Duration: 1441}, ErrInvalidDuration},
		{Activity{Name: "x", Category: "Gardening", Duration: 60}, ErrUnknownCategory},
	}
	for i, tc := range cases {
		err := tc.a.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}

	// Full-day single activity is valid on its own; the capacity check
	// against the rest of the ledger lives in the ledger service.
	full := Activity{Name: "Day off grid", Category: Other, Duration: DayMinutes}
	if err := full.Validate(); err != nil {
		t.Fatalf("expected 1440-minute activity to validate, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("%q expected %q, got %q (err=%v)", c, c, got, err)
		}
	}
	if _, err := ParseCategory("work"); err == nil {
		t.Fatalf("category matching is case-sensitive; expected error")
	}
	if _, err := ParseCategory(""); err == nil {
		t.Fatalf("expected error for empty category")
	}
}

func TestCategoryColorFallback(t *testing.T) {
	if Sleep.Color() != "#45B7D1" {
		t.Fatalf("unexpected color for Sleep: %s", Sleep.Color())
	}
	if Category("Unknown").Color() != Other.Color() {
		t.Fatalf("unrecognized category should fall back to Other's color")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-01")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-01-01" {
		t.Fatalf("round trip mismatch: %s", d.String())
	}
	if d.Display() != "January 1, 2024" {
		t.Fatalf("display mismatch: %s", d.Display())
	}

	for _, bad := range []string{"", "2024-13-01", "01-01-2024", "yesterday"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestCapacityErrorMessage(t *testing.T) {
	err := &CapacityError{Remaining: 90}
	if got := err.Error(); got != "would exceed 24 hours: 90 minutes remaining" {
		t.Fatalf("unexpected message: %s", got)
	}
}
