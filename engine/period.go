package engine

import (
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// PERIOD KEY - "Month/Year" bucket for records
// =============================================================================

// PeriodKey identifies a calendar month/year bucket, e.g. "January/2026".
// Ordering is by calendar position (month-table index, then year), never
// lexical.
type PeriodKey string

var monthTable = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// unknownMonthIndex sorts unrecognized month names after every real month.
// A defined fallback, not an error: historical imports carry typos.
const unknownMonthIndex = 99

// MonthIndex returns the 0-based calendar position of a month name,
// case-insensitively, or unknownMonthIndex when the name is not recognized.
func MonthIndex(name string) int {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i, m := range monthTable {
		if strings.ToLower(m) == needle {
			return i
		}
	}
	return unknownMonthIndex
}

// Comparable collapses the period into a single sortable integer
// (year*100 + monthIndex). Malformed keys collapse to 0 and sort first.
func (p PeriodKey) Comparable() int {
	parts := strings.SplitN(string(p), "/", 2)
	if len(parts) != 2 {
		return 0
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	return year*100 + MonthIndex(parts[0])
}

// SortPeriods returns a calendar-ordered copy. Input is not mutated.
func SortPeriods(periods []PeriodKey) []PeriodKey {
	sorted := make([]PeriodKey, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Comparable() < sorted[j].Comparable()
	})
	return sorted
}

// KnownPeriods deduplicates the given period list and guarantees the current
// period is present, returning the result in calendar order.
func KnownPeriods(periods []PeriodKey, current PeriodKey) []PeriodKey {
	seen := make(map[PeriodKey]struct{}, len(periods)+1)
	var out []PeriodKey
	for _, p := range periods {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if current != "" {
		if _, ok := seen[current]; !ok {
			out = append(out, current)
		}
	}
	return SortPeriods(out)
}
