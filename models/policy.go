package models

import "time"

// ChildPolicy is the parent-owned access policy of one child.
type ChildPolicy struct {
	ChildID                     string    `json:"childId" gorm:"primaryKey"`
	IsBlocked                   bool      `json:"isBlocked"`
	BlockReason                 *string   `json:"blockReason"`
	AllowedTimeSlots            TimeSlots `json:"allowedTimeSlots" gorm:"type:jsonb;serializer:json"`
	DailyScreenTimeLimitMinutes *int      `json:"dailyScreenTimeLimit"`
	UpdatedAt                   time.Time `json:"updatedAt"`
}

func (ChildPolicy) TableName() string { return "child_policies" }

// DefaultPolicy is the policy of a child the parent never configured:
// not blocked, no time windows, no quota.
func DefaultPolicy(childID string) ChildPolicy {
	return ChildPolicy{ChildID: childID, AllowedTimeSlots: TimeSlots{}}
}
