package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetd/internal/core"
)

func date(y int, m time.Month, d int) core.Date {
	return core.NewDate(y, m, d)
}

func TestNextDueDateDailyWeekly(t *testing.T) {
	start := date(2024, time.January, 1)

	next, err := NextDueDate(date(2024, time.January, 15), core.Daily, start)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.January, 16), next)

	next, err = NextDueDate(date(2024, time.December, 31), core.Daily, start)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 1), next)

	next, err = NextDueDate(date(2024, time.January, 29), core.Weekly, start)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 5), next)
}

func TestNextDueDateMonthlyClampsEachStep(t *testing.T) {
	// Rule anchored to the 31st: the clamp applies per month, and the day
	// snaps back to 31 in months that have it.
	start := date(2024, time.January, 31)

	steps := []core.Date{
		date(2024, time.February, 29), // leap year clamp
		date(2024, time.March, 31),    // back to the anchor day
		date(2024, time.April, 30),
		date(2024, time.May, 31),
	}

	current := start
	for _, want := range steps {
		next, err := NextDueDate(current, core.Monthly, start)
		require.NoError(t, err)
		assert.Equal(t, want.String(), next.String())
		current = next
	}
}

func TestNextDueDateMonthlyNonLeap(t *testing.T) {
	start := date(2025, time.January, 31)
	next, err := NextDueDate(start, core.Monthly, start)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.February, 28), next)
}

func TestNextDueDateMonthlyYearWrap(t *testing.T) {
	start := date(2024, time.November, 15)
	next, err := NextDueDate(date(2024, time.December, 15), core.Monthly, start)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 15), next)
}

func TestNextDueDateYearly(t *testing.T) {
	// Feb 29 start clamps to Feb 28 on non-leap years and returns to Feb 29
	// on the next leap year.
	start := date(2024, time.February, 29)

	next, err := NextDueDate(start, core.Yearly, start)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.February, 28), next)

	next, err = NextDueDate(date(2027, time.February, 28), core.Yearly, start)
	require.NoError(t, err)
	assert.Equal(t, date(2028, time.February, 29), next)
}

func TestNextDueDateUnknownFrequency(t *testing.T) {
	_, err := NextDueDate(date(2024, time.January, 1), core.Frequency("hourly"), date(2024, time.January, 1))
	assert.Error(t, err)
}

func TestNextDueDateStrictlyIncreases(t *testing.T) {
	start := date(2024, time.January, 31)
	for _, freq := range []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		current := start
		for i := 0; i < 24; i++ {
			next, err := NextDueDate(current, freq, start)
			require.NoError(t, err)
			assert.True(t, next.After(current.Time),
				"%s step from %s must advance, got %s", freq, current, next)
			current = next
		}
	}
}
