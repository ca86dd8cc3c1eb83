package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(ms []Memory) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = IDOf(m)
	}
	return out
}

func TestSort_NextOccurrence(t *testing.T) {
	ms := []Memory{
		Record{ID: "c", DaysUntil: 30, Date: NewDate(2020, 1, 1)},
		Record{ID: "a", DaysUntil: 2, Date: NewDate(2021, 1, 1)},
		ProvisionalRecord{Record: Record{ID: "temp-1", DaysUntil: 2, Date: NewDate(2022, 1, 1)}},
		Record{ID: "b", DaysUntil: 2, Date: NewDate(2021, 1, 1)},
	}

	Sort(ms, SortByNextOccurrence)
	assert.Equal(t, []string{"temp-1", "a", "b", "c"}, ids(ms))
}

func TestSort_DateDescending(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ms := []Memory{
		Record{ID: "old", Date: NewDate(2019, 5, 1)},
		Record{ID: "new-early", Date: NewDate(2024, 3, 10), CreatedAt: t0},
		Record{ID: "new-late", Date: NewDate(2024, 3, 10), CreatedAt: t0.Add(time.Hour)},
	}

	Sort(ms, SortByDate)
	assert.Equal(t, []string{"new-late", "new-early", "old"}, ids(ms))
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("date")
	require.NoError(t, err)
	assert.Equal(t, SortByDate, o)

	_, err = ParseSortOrder("random")
	require.Error(t, err)
}
