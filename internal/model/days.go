package model

import "time"

// NextDayLabels returns n weekday names starting at ref's weekday.
func NextDayLabels(ref time.Time, n int) []string {
	if n <= 0 {
		return []string{}
	}
	labels := make([]string, n)
	start := int(ref.Weekday())
	for i := range labels {
		labels[i] = time.Weekday((start + i) % 7).String()
	}
	return labels
}

func NextSevenDayLabels(ref time.Time) []string {
	return NextDayLabels(ref, 7)
}
