package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

func TestMinutesOfDay(t *testing.T) {
	minutes, err := MinutesOfDay("08:05")
	require.NoError(t, err)
	assert.Equal(t, 485, minutes)

	minutes, err = MinutesOfDay("23:59")
	require.NoError(t, err)
	assert.Equal(t, 1439, minutes)

	for _, bad := range []string{"8:05", "24:00", "12:60", "noon", "12:5", ""} {
		_, err := MinutesOfDay(bad)
		require.Error(t, err, bad)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestEndClockDerivesFromPeriodCount(t *testing.T) {
	end, err := EndClock("08:00", 2, 45)
	require.NoError(t, err)
	assert.Equal(t, "09:30", end)

	end, err = EndClock("10:15", 1, 45)
	require.NoError(t, err)
	assert.Equal(t, "11:00", end)

	end, err = EndClock("08:00", 3, 0)
	require.NoError(t, err)
	assert.Equal(t, "10:15", end, "zero length falls back to the default")
}

func TestEndClockRejectsMidnightRollover(t *testing.T) {
	_, err := EndClock("23:30", 1, 45)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = EndClock("08:00", 0, 45)
	require.Error(t, err)
}

func TestWindowsOverlapInclusiveBoundaries(t *testing.T) {
	assert.True(t, windowsOverlap(480, 570, 570, 660), "shared boundary minute counts as overlap")
	assert.True(t, windowsOverlap(500, 520, 480, 570))
	assert.False(t, windowsOverlap(480, 570, 571, 660))
	assert.False(t, windowsOverlap(600, 660, 480, 570))
}
