package enums

import "strings"

type TimeWindow string

const (
	TimeWindowAnytime   TimeWindow = "anytime"
	TimeWindowToday     TimeWindow = "today"
	TimeWindowThisWeek  TimeWindow = "this_week"
	TimeWindowThisMonth TimeWindow = "this_month"
)

func ParseTimeWindow(raw string) (TimeWindow, bool) {
	switch TimeWindow(strings.ToLower(strings.TrimSpace(raw))) {
	case TimeWindowAnytime:
		return TimeWindowAnytime, true
	case TimeWindowToday:
		return TimeWindowToday, true
	case TimeWindowThisWeek:
		return TimeWindowThisWeek, true
	case TimeWindowThisMonth:
		return TimeWindowThisMonth, true
	default:
		return "", false
	}
}
