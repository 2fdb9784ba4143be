package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	today := time.Date(2024, 1, 1, 15, 42, 0, 0, time.UTC)

	window := Window(today, DefaultWindowDays)
	require.Len(t, window, 14)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), window[0])
	assert.Equal(t, time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC), window[13])

	for i := 1; i < len(window); i++ {
		assert.True(t, window[i].After(window[i-1]), "dates must be ascending")
		assert.False(t, SameDay(window[i], window[i-1]), "dates must be distinct")
	}
}

func TestWindowAcrossMonthEnd(t *testing.T) {
	window := Window(time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC), 7)
	require.Len(t, window, 7)
	assert.Equal(t, time.March, window[6].Month())
	assert.Equal(t, 2, window[6].Day())
}

func TestWindowEmpty(t *testing.T) {
	assert.Nil(t, Window(time.Now(), 0))
	assert.Nil(t, Window(time.Now(), -3))
}

func TestInWindow(t *testing.T) {
	window := Window(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), DefaultWindowDays)

	assert.True(t, InWindow(window, time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)))
	assert.True(t, InWindow(window, time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC)))
	assert.False(t, InWindow(window, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, InWindow(window, time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC)))
}
