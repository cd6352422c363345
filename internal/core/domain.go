package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayMinutes is the capacity of a single day ledger: 24 hours in minutes.
const DayMinutes = 1440

const (
	Work          Category = "Work"
	Study         Category = "Study"
	Sleep         Category = "Sleep"
	Exercise      Category = "Exercise"
	Entertainment Category = "Entertainment"
	Meals         Category = "Meals"
	Commute       Category = "Commute"
	Social        Category = "Social"
	Hobbies       Category = "Hobbies"
	Other         Category = "Other"
)

type (
	Category string

	Date struct {
		time.Time
	}

	// Activity is a single logged entry in a day ledger.
	Activity struct {
		ID        string
		Name      string
		Category  Category
		Duration  int   // minutes, 1..DayMinutes
		Timestamp int64 // unix millis of the last write, informational
	}
)

// Categories lists all valid categories in display order.
var Categories = []Category{
	Work, Study, Sleep, Exercise, Entertainment,
	Meals, Commute, Social, Hobbies, Other,
}

var categoryColors = map[Category]string{
	Work:          "#FF6B6B",
	Study:         "#4ECDC4",
	Sleep:         "#45B7D1",
	Exercise:      "#10B981",
	Entertainment: "#F59E0B",
	Meals:         "#F97316",
	Commute:       "#8B5CF6",
	Social:        "#EC4899",
	Hobbies:       "#14B8A6",
	Other:         "#6B7280",
}

var (
	ErrInvalidDuration = errors.New("duration must be a whole number of minutes between 1 and 1440")
	ErrEmptyName       = errors.New("activity name cannot be empty")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidDate     = errors.New("invalid date")
)

// CapacityError reports a write that would push a day past DayMinutes.
// Remaining carries the minutes still available for user messaging.
type CapacityError struct {
	Remaining int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("would exceed 24 hours: %d minutes remaining", e.Remaining)
}

// IsValid reports whether the category belongs to the closed set.
func (c Category) IsValid() bool {
	_, ok := categoryColors[c]
	return ok
}

// Color returns the chart color for the category, falling back to Other's gray.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[Other]
}

// ParseCategory matches user input against the closed category set.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

func (a Activity) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 200 {
		return errors.New("activity name too long (max 200 characters)")
	}
	if a.Duration < 1 || a.Duration > DayMinutes {
		return ErrInvalidDuration
	}
	if !a.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(a.Category))
	}
	return nil
}

// ParseDate parses a calendar day in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar day in the local timezone.
func Today() Date {
	now := time.Now()
	return Date{Time: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)}
}

// String renders the date in the YYYY-MM-DD form used in store paths and URLs.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Display renders the date for page headings, e.g. "January 2, 2024".
func (d Date) Display() string {
	return d.Format("January 2, 2006")
}
