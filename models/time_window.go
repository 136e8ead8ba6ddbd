package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"PinguinGuard/apperrors"
)

// MinutesPerDay is the length of the minute-of-day clock.
const MinutesPerDay = 24 * 60

// TimeWindow is a recurring daily interval during which access is allowed.
// An end before the start denotes a span crossing midnight (22:00-06:00).
type TimeWindow struct {
	StartMinuteOfDay int `json:"startMinuteOfDay"`
	EndMinuteOfDay   int `json:"endMinuteOfDay"`
}

// WrapsMidnight reports whether the window crosses 00:00.
func (w TimeWindow) WrapsMidnight() bool {
	return w.EndMinuteOfDay < w.StartMinuteOfDay
}

// String formats the window in the "HH:MM-HH:MM" wire format.
func (w TimeWindow) String() string {
	return formatClock(w.StartMinuteOfDay) + "-" + formatClock(w.EndMinuteOfDay)
}

// ParseTimeWindow parses a single "HH:MM-HH:MM" slot on a 24-hour clock.
func ParseTimeWindow(slot string) (TimeWindow, error) {
	trimmed := strings.TrimSpace(slot)
	if trimmed == "" {
		return TimeWindow{}, &apperrors.ParseError{Input: slot, Reason: "empty slot"}
	}

	startRaw, endRaw, ok := strings.Cut(trimmed, "-")
	if !ok {
		return TimeWindow{}, &apperrors.ParseError{Input: slot, Reason: `expected "HH:MM-HH:MM"`}
	}

	start, reason := parseClock(startRaw)
	if reason != "" {
		return TimeWindow{}, &apperrors.ParseError{Input: slot, Reason: "start " + reason}
	}
	end, reason := parseClock(endRaw)
	if reason != "" {
		return TimeWindow{}, &apperrors.ParseError{Input: slot, Reason: "end " + reason}
	}
	if start == end {
		return TimeWindow{}, &apperrors.ParseError{Input: slot, Reason: "start and end are equal"}
	}

	return TimeWindow{StartMinuteOfDay: start, EndMinuteOfDay: end}, nil
}

// parseClock returns the minute of day for "HH:MM", or a non-empty reason.
func parseClock(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "is empty"
	}
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 || !isDigits(hh) || !isDigits(mm) {
		return 0, fmt.Sprintf("%q is not HH:MM", raw)
	}
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	if hour > 23 {
		return 0, fmt.Sprintf("hour %d out of range", hour)
	}
	if minute > 59 {
		return 0, fmt.Sprintf("minute %d out of range", minute)
	}
	return hour*60 + minute, ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func formatClock(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}

// TimeSlots is a window list that travels as "HH:MM-HH:MM" strings.
type TimeSlots []TimeWindow

// Strings returns the wire form of the slots.
func (s TimeSlots) Strings() []string {
	out := make([]string, len(s))
	for i, w := range s {
		out[i] = w.String()
	}
	return out
}

func (s TimeSlots) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON rejects the whole list when any slot is malformed.
func (s *TimeSlots) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := make(TimeSlots, 0, len(raw))
	for _, slot := range raw {
		w, err := ParseTimeWindow(slot)
		if err != nil {
			return err
		}
		parsed = append(parsed, w)
	}
	*s = parsed
	return nil
}
