package models

import "time"

// DateLayout is the calendar-day format of UsageRecord.Date.
const DateLayout = "2006-01-02"

// UsageRecord holds one child's cumulative usage for one local calendar day.
// A new day gets a new record; the previous one is never reset.
type UsageRecord struct {
	ID               uint      `json:"-" gorm:"primaryKey"`
	ChildID          string    `json:"childId" gorm:"uniqueIndex:idx_usage_child_date"`
	Date             string    `json:"date" gorm:"uniqueIndex:idx_usage_child_date"`
	TotalMinutesUsed int       `json:"totalMinutesUsed"`
	SessionCount     int       `json:"sessionCount"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (UsageRecord) TableName() string { return "usage_records" }

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// NewUsageRecord returns the empty record of childID for the day of t.
func NewUsageRecord(childID string, t time.Time) UsageRecord {
	return UsageRecord{ChildID: childID, Date: DateOf(t)}
}
