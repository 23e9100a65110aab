package domain

import "sort"

// DefaultPeriod is the electoral period currently in session.
const DefaultPeriod = 10

// PeriodYears maps an electoral period to the year its term started.
var PeriodYears = map[int]string{
	10: "2025",
	9:  "2021",
	8:  "2017",
	7:  "2013",
	6:  "2010",
	5:  "2006",
	4:  "2002",
	3:  "1998",
	2:  "1996",
	1:  "1993",
}

// PeriodLabels maps an electoral period to a human-readable span.
var PeriodLabels = map[int]string{
	10: "2025–present",
	9:  "2021–2025",
	8:  "2017–2021",
	7:  "2013–2017",
	6:  "2010–2013",
	5:  "2006–2010",
	4:  "2002–2006",
	3:  "1998–2002",
	2:  "1996–1998",
	1:  "1993–1996",
}

// KnownPeriods returns all electoral periods, newest first.
func KnownPeriods() []int {
	periods := make([]int, 0, len(PeriodYears))
	for p := range PeriodYears {
		periods = append(periods, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(periods)))
	return periods
}
