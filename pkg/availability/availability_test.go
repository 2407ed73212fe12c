package availability

import (
	"testing"
	"time"

	"github.com/daypick/daypick/pkg/timerange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(t *testing.T, start, end string) []time.Time {
	t.Helper()
	first, err := timerange.ParseDay(start)
	require.NoError(t, err)
	last, err := timerange.ParseDay(end)
	require.NoError(t, err)
	days, err := timerange.Days(first, last)
	require.NoError(t, err)
	return days
}

func TestAggregate(t *testing.T) {
	t.Run("counts availability per date and picks the earliest full date", func(t *testing.T) {
		// Three eligible attendees: one blocks Jan 2, one blocks nothing,
		// one blocks Jan 2 and Jan 3.
		days := window(t, "2026-01-01", "2026-01-03")
		blocked := map[string]int{
			"2026-01-02": 2,
			"2026-01-03": 1,
		}

		dates, earliestAll, earliestMost := Aggregate(days, 3, blocked)

		require.Len(t, dates, 3)
		assert.Equal(t, DateCount{Date: days[0], Available: 3, Blocked: 0}, dates[0])
		assert.Equal(t, DateCount{Date: days[1], Available: 1, Blocked: 2}, dates[1])
		assert.Equal(t, DateCount{Date: days[2], Available: 2, Blocked: 1}, dates[2])

		require.NotNil(t, earliestAll)
		assert.Equal(t, "2026-01-01", timerange.FormatDay(*earliestAll))
		require.NotNil(t, earliestMost)
		assert.Equal(t, "2026-01-01", timerange.FormatDay(*earliestMost))
	})

	t.Run("no date works for everyone, earliest most-available wins", func(t *testing.T) {
		days := window(t, "2026-01-01", "2026-01-06")
		blocked := map[string]int{
			"2026-01-01": 2,
			"2026-01-02": 3,
			"2026-01-03": 2,
			"2026-01-04": 1,
			"2026-01-05": 2,
			"2026-01-06": 1,
		}

		_, earliestAll, earliestMost := Aggregate(days, 3, blocked)

		assert.Nil(t, earliestAll)
		require.NotNil(t, earliestMost)
		// Jan 4 and Jan 6 tie at 2 available; the earlier date wins.
		assert.Equal(t, "2026-01-04", timerange.FormatDay(*earliestMost))
	})

	t.Run("zero eligible attendees yields no picks", func(t *testing.T) {
		days := window(t, "2026-01-01", "2026-01-03")

		dates, earliestAll, earliestMost := Aggregate(days, 0, nil)

		assert.Len(t, dates, 3)
		assert.Nil(t, earliestAll)
		assert.Nil(t, earliestMost)
	})

	t.Run("identical input yields identical output", func(t *testing.T) {
		days := window(t, "2026-01-01", "2026-01-05")
		blocked := map[string]int{"2026-01-02": 1, "2026-01-04": 2}

		first, firstAll, firstMost := Aggregate(days, 2, blocked)
		second, secondAll, secondMost := Aggregate(days, 2, blocked)

		assert.Equal(t, first, second)
		assert.Equal(t, firstAll, secondAll)
		assert.Equal(t, firstMost, secondMost)
	})
}
