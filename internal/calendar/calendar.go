// Package calendar holds the week arithmetic of the 52-week schedule grid.
package calendar

import "time"

// WeeksPerYear is the size of the schedule grid.
const WeeksPerYear = 52

// MonthBucket maps one month header to the week columns it spans.
type MonthBucket struct {
	Mes     string `json:"mes"`
	Semanas []int  `json:"semanas"`
}

// Months are the header buckets of the grid, in calendar order. The uneven
// split (4 or 5 weeks per month) matches the layout the planner prints.
func Months() []MonthBucket {
	return []MonthBucket{
		{"ENE", []int{1, 2, 3, 4}},
		{"FEB", []int{5, 6, 7, 8}},
		{"MAR", []int{9, 10, 11, 12, 13}},
		{"ABR", []int{14, 15, 16, 17}},
		{"MAY", []int{18, 19, 20, 21}},
		{"JUN", []int{22, 23, 24, 25, 26}},
		{"JUL", []int{27, 28, 29, 30}},
		{"AGO", []int{31, 32, 33, 34, 35}},
		{"SEP", []int{36, 37, 38, 39}},
		{"OCT", []int{40, 41, 42, 43}},
		{"NOV", []int{44, 45, 46, 47, 48}},
		{"DIC", []int{49, 50, 51, 52}},
	}
}

// WeekOf returns the week number of t within its own year: days elapsed since
// January 1st divided by seven, rounded up, minimum 1. This is the planner's
// simple week count, deliberately not the ISO week.
func WeekOf(t time.Time) int {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	days := int(t.Sub(start).Hours() / 24)
	week := days/7 + 1
	if week < 1 {
		week = 1
	}
	return week
}

// CurrentWeek returns the week number of the current instant.
func CurrentWeek() int {
	return WeekOf(time.Now())
}

// WeekRange returns the first and last day of a week counted from January 1st
// of year, seven days per week.
func WeekRange(year, week int) (start, end time.Time) {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	start = first.AddDate(0, 0, (week-1)*7)
	end = start.AddDate(0, 0, 6)
	return start, end
}

// ShiftWeeks moves every week in the set by offset, dropping results that
// fall outside [1,52]. This is the bulk shift applied when an activity row is
// dragged onto a target week: the offset is measured from the earliest
// scheduled week.
func ShiftWeeks(weeks []int, offset int) []int {
	shifted := []int{}
	for _, w := range weeks {
		moved := w + offset
		if moved >= 1 && moved <= WeeksPerYear {
			shifted = append(shifted, moved)
		}
	}
	return shifted
}

// OffsetTo returns the shift that places the earliest week of the set on
// target. An empty set has no anchor and yields zero.
func OffsetTo(weeks []int, target int) int {
	if len(weeks) == 0 {
		return 0
	}
	first := weeks[0]
	for _, w := range weeks[1:] {
		if w < first {
			first = w
		}
	}
	return target - first
}
