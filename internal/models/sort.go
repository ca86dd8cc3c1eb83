package models

import (
	"fmt"
	"sort"
)

// SortOrder selects how memory lists are displayed.
type SortOrder string

const (
	// SortByNextOccurrence orders by days until the next anniversary, soonest first.
	SortByNextOccurrence SortOrder = "next-occurrence"
	// SortByDate orders historical records by date, newest first.
	SortByDate SortOrder = "date"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case SortByNextOccurrence, SortByDate:
		return SortOrder(s), nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// Sort orders ms in place. Ties fall back to date desc, createdAt desc and
// finally id asc, so a removed and re-inserted memory lands on its old index.
func Sort(ms []Memory, order SortOrder) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i].Base(), ms[j].Base()
		if order == SortByNextOccurrence && a.DaysUntil != b.DaysUntil {
			return a.DaysUntil < b.DaysUntil
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
