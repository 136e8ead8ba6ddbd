package restriction

import (
	"fmt"
	"time"

	"PinguinGuard/models"
)

// DefaultBlockMessage is used when a parent blocks without a reason.
const DefaultBlockMessage = "Access blocked by parent"

// Evaluate combines a policy and a usage snapshot into a status at the
// given minute of day. The first matching rule wins:
// manual block, then time window, then quota.
func Evaluate(policy models.ChildPolicy, usage models.UsageRecord, nowMinuteOfDay int) models.RestrictionStatus {
	if policy.IsBlocked {
		message := DefaultBlockMessage
		if policy.BlockReason != nil && *policy.BlockReason != "" {
			message = *policy.BlockReason
		}
		return restricted(models.ReasonManualBlock, message)
	}

	if len(policy.AllowedTimeSlots) > 0 && !IsWithinAllowed(nowMinuteOfDay, policy.AllowedTimeSlots) {
		message := "Outside allowed hours"
		if wait, ok := TimeUntilNextWindow(nowMinuteOfDay, policy.AllowedTimeSlots); ok {
			message = fmt.Sprintf("Outside allowed hours, next window opens in %s", FormatMinutes(wait))
		}
		return restricted(models.ReasonOutsideTimeWindow, message)
	}

	if limit := policy.DailyScreenTimeLimitMinutes; limit != nil && IsQuotaExceeded(usage.TotalMinutesUsed, limit) {
		return restricted(models.ReasonQuotaExceeded,
			fmt.Sprintf("Daily screen time limit of %s reached", FormatMinutes(*limit)))
	}

	return models.RestrictionStatus{Reason: models.ReasonNone}
}

// EvaluateAt evaluates at the wall-clock minute of t, in t's location.
func EvaluateAt(policy models.ChildPolicy, usage models.UsageRecord, t time.Time) models.RestrictionStatus {
	return Evaluate(policy, usage, MinuteOfDay(t))
}

func restricted(reason models.RestrictionReason, message string) models.RestrictionStatus {
	return models.RestrictionStatus{
		IsRestricted:      true,
		Reason:            reason,
		Message:           message,
		CanRequestUnblock: reason != models.ReasonNone,
	}
}
