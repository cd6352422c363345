package core

import "sort"

// CategoryTotal is the aggregated duration for one category.
type CategoryTotal struct {
	Category Category
	Minutes  int
}

// TotalMinutes sums all activity durations; 0 for an empty set.
func TotalMinutes(records []Activity) int {
	total := 0
	for _, a := range records {
		total += a.Duration
	}
	return total
}

// ByCategory sums durations grouped by category. Categories with no
// activities are absent from the result, not zero-valued.
func ByCategory(records []Activity) map[Category]int {
	sums := make(map[Category]int)
	for _, a := range records {
		sums[a.Category] += a.Duration
	}
	return sums
}

// CategoryTotals groups durations by category in first-appearance order and
// stable-sorts the groups by descending total. Ties keep the order in which
// the categories first appeared in records, so the result is deterministic
// for a given input ordering.
func CategoryTotals(records []Activity) []CategoryTotal {
	index := make(map[Category]int)
	var totals []CategoryTotal
	for _, a := range records {
		if i, ok := index[a.Category]; ok {
			totals[i].Minutes += a.Duration
			continue
		}
		index[a.Category] = len(totals)
		totals = append(totals, CategoryTotal{Category: a.Category, Minutes: a.Duration})
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Minutes > totals[j].Minutes
	})
	return totals
}

// IsComplete reports whether the ledger is non-empty and totals exactly a
// full day. This gates the analytics view.
func IsComplete(records []Activity) bool {
	return len(records) > 0 && TotalMinutes(records) == DayMinutes
}

// TopCategory returns the category with the largest aggregated duration.
// The second return is false for an empty record set.
func TopCategory(records []Activity) (Category, bool) {
	totals := CategoryTotals(records)
	if len(totals) == 0 {
		return "", false
	}
	return totals[0].Category, true
}

// Percentage converts a category total into its share of a full day,
// as a percentage suitable for one-decimal rendering.
func Percentage(minutes int) float64 {
	return float64(minutes) / DayMinutes * 100
}

// HoursMinutes splits a minute total into whole hours and leftover minutes.
func HoursMinutes(total int) (hours, minutes int) {
	return total / 60, total % 60
}
