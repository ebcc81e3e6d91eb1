package aggregate

import (
	"fmt"
	"time"
)

// parseISOWeek expands an ISO week string like "2018-W10" into its seven
// dates, Monday through Sunday.
func parseISOWeek(week string) ([]string, error) {
	var year, num int
	if _, err := fmt.Sscanf(week, "%d-W%d", &year, &num); err != nil {
		return nil, fmt.Errorf("invalid week '%s': expected YYYY-Www: %w", week, err)
	}
	if num < 1 || num > 53 {
		return nil, fmt.Errorf("invalid week '%s': week number out of range", week)
	}

	// ISO 8601: week 1 is the week containing January 4th.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	daysSinceMonday := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -daysSinceMonday+(num-1)*7)

	if y, w := monday.ISOWeek(); y != year || w != num {
		return nil, fmt.Errorf("invalid week '%s': year %d has no week %d", week, year, num)
	}

	dates := make([]string, 7)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i).Format("2006-01-02")
	}
	return dates, nil
}
