package models

import "time"

const day = 24 * time.Hour

// anniversary returns the occurrence of d's month/day in year. 29 February
// falls back to 28 February in non-leap years.
func anniversary(d Date, year int) Date {
	month, dom := d.Month(), d.Day()
	if month == time.February && dom == 29 && !isLeap(year) {
		dom = 28
	}
	return NewDate(year, month, dom)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// NextOccurrence returns the first occurrence of d on or after today. A date
// that is still ahead is its own next occurrence.
func NextOccurrence(d Date, today Date) Date {
	if !d.Before(today.Time) {
		return d
	}
	next := anniversary(d, today.Year())
	if next.Before(today.Time) {
		next = anniversary(d, today.Year()+1)
	}
	return next
}

// DaysUntil is the number of whole days from today to the next occurrence of d.
func DaysUntil(d Date, today Date) int {
	return int(NextOccurrence(d, today).Sub(today.Time) / day)
}

// YearsSince is the number of complete years between d and today, never negative.
func YearsSince(d Date, today Date) int {
	if !d.Before(today.Time) {
		return 0
	}
	years := today.Year() - d.Year()
	if anniversary(d, today.Year()).After(today.Time) {
		years--
	}
	return years
}

// Derive returns r with DaysUntil and YearsSince computed for now. The same
// computation is applied to provisional and durable records so optimistic
// entries render identically.
func (r Record) Derive(now time.Time) Record {
	today := DateOf(now)
	r.DaysUntil = DaysUntil(r.Date, today)
	r.YearsSince = YearsSince(r.Date, today)
	return r
}

// DeriveAll recomputes derived fields on every memory in ms.
func DeriveAll(ms []Memory, now time.Time) []Memory {
	out := make([]Memory, len(ms))
	for i, m := range ms {
		switch v := m.(type) {
		case ProvisionalRecord:
			v.Record = v.Record.Derive(now)
			out[i] = v
		case Record:
			out[i] = v.Derive(now)
		default:
			out[i] = m
		}
	}
	return out
}
