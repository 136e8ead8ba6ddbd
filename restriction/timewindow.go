// Package restriction decides whether a child may use the app right now.
// Everything here is pure: snapshots in, values out, no shared state.
package restriction

import (
	"time"

	"PinguinGuard/models"
)

// ParseSlots parses "HH:MM-HH:MM" slots. One bad slot rejects the whole
// batch so a partially parsed policy is never applied.
func ParseSlots(slots []string) (models.TimeSlots, error) {
	windows := make(models.TimeSlots, 0, len(slots))
	for _, slot := range slots {
		w, err := models.ParseTimeWindow(slot)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// FormatSlots is the inverse of ParseSlots.
func FormatSlots(windows []models.TimeWindow) []string {
	return models.TimeSlots(windows).Strings()
}

// MinuteOfDay returns the minutes elapsed since midnight in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Contains reports whether now falls inside w, honouring midnight wrap.
func Contains(w models.TimeWindow, now int) bool {
	if w.WrapsMidnight() {
		return now >= w.StartMinuteOfDay || now < w.EndMinuteOfDay
	}
	return w.StartMinuteOfDay <= now && now < w.EndMinuteOfDay
}

// IsWithinAllowed reports whether now is inside any window. An empty list
// means there is no time-of-day restriction.
func IsWithinAllowed(now int, windows []models.TimeWindow) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if Contains(w, now) {
			return true
		}
	}
	return false
}

// TimeUntilNextWindow returns the minutes from now until the closest window
// start, going forward around the clock. ok is false when now is already
// allowed or there are no windows.
func TimeUntilNextWindow(now int, windows []models.TimeWindow) (minutes int, ok bool) {
	if len(windows) == 0 || IsWithinAllowed(now, windows) {
		return 0, false
	}
	best := models.MinutesPerDay
	for _, w := range windows {
		d := ((w.StartMinuteOfDay-now)%models.MinutesPerDay + models.MinutesPerDay) % models.MinutesPerDay
		if d < best {
			best = d
		}
	}
	return best, true
}
