package core

// ChartSeries is the shape handed to the client-side charting library:
// parallel labels, minute values and category colors.
type ChartSeries struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Colors []string `json:"colors"`
}

// CategoryShare builds the proportion series keyed by category, in the order
// categories first appear in the record set.
func CategoryShare(records []Activity) ChartSeries {
	var s ChartSeries
	seen := make(map[Category]int)
	for _, a := range records {
		if i, ok := seen[a.Category]; ok {
			s.Values[i] += a.Duration
			continue
		}
		seen[a.Category] = len(s.Labels)
		s.Labels = append(s.Labels, string(a.Category))
		s.Values = append(s.Values, a.Duration)
		s.Colors = append(s.Colors, a.Category.Color())
	}
	return s
}

// ActivityDurations builds the magnitude series keyed by individual activity
// name, one bar per record, colored by the record's category.
func ActivityDurations(records []Activity) ChartSeries {
	var s ChartSeries
	for _, a := range records {
		s.Labels = append(s.Labels, a.Name)
		s.Values = append(s.Values, a.Duration)
		s.Colors = append(s.Colors, a.Category.Color())
	}
	return s
}
