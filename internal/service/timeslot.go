package service

import (
	"fmt"
	"regexp"
	"strconv"

	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

// DefaultPeriodLengthMinutes is the fixed length of one period.
const DefaultPeriodLengthMinutes = 45

const minutesPerDay = 24 * 60

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// MinutesOfDay converts an "HH:MM" 24-hour clock into minutes since midnight.
func MinutesOfDay(clock string) (int, error) {
	match := clockPattern.FindStringSubmatch(clock)
	if match == nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time %q, expected HH:MM", clock))
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight back into "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// EndClock derives the end time of a placement: start + periods x periodLength.
// Placements that would run past midnight are rejected.
func EndClock(start string, periods, periodLength int) (string, error) {
	if periods < 1 {
		return "", appErrors.Clone(appErrors.ErrValidation, "number of periods must be at least 1")
	}
	if periodLength <= 0 {
		periodLength = DefaultPeriodLengthMinutes
	}
	startMinutes, err := MinutesOfDay(start)
	if err != nil {
		return "", err
	}
	endMinutes := startMinutes + periods*periodLength
	if endMinutes >= minutesPerDay {
		return "", appErrors.Clone(appErrors.ErrValidation, "placement would run past midnight")
	}
	return FormatClock(endMinutes), nil
}

// windowsOverlap compares two windows on minutes since midnight. Boundaries are
// inclusive on both ends, so back-to-back windows count as overlapping.
func windowsOverlap(s1, e1, s2, e2 int) bool {
	return s1 <= e2 && s2 <= e1
}
