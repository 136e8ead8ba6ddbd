package restriction

import "fmt"

// Unlimited is how a missing quota is rendered.
const Unlimited = "Unlimited"

// IsQuotaExceeded reports whether used has reached the daily limit.
// A nil limit never exceeds.
func IsQuotaExceeded(usedMinutes int, limitMinutes *int) bool {
	if limitMinutes == nil {
		return false
	}
	return usedMinutes >= *limitMinutes
}

// RemainingMinutes returns nil for an unlimited quota, otherwise the
// non-negative minutes left today.
func RemainingMinutes(usedMinutes int, limitMinutes *int) *int {
	if limitMinutes == nil {
		return nil
	}
	remaining := max(0, *limitMinutes-usedMinutes)
	return &remaining
}

// FormatRemaining renders RemainingMinutes for display.
func FormatRemaining(remainingMinutes *int) string {
	if remainingMinutes == nil {
		return Unlimited
	}
	return FormatMinutes(*remainingMinutes)
}

// FormatMinutes renders a duration as "1h30m" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if h := minutes / 60; h > 0 {
		return fmt.Sprintf("%dh%dm", h, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
