package models

import (
	"encoding/json"
	"time"
)

// History actions.
const (
	ActionRequestCreated         = "request_created"
	ActionRequestApproved        = "request_approved"
	ActionRequestRejected        = "request_rejected"
	ActionBlockUpdated           = "block_updated"
	ActionTimeSlotsUpdated       = "time_slots_updated"
	ActionScreenTimeLimitUpdated = "screen_time_limit_updated"
)

// HistoryEntry is one append-only audit record.
type HistoryEntry struct {
	ID            string         `json:"id" gorm:"primaryKey"`
	ChildID       string         `json:"childId" gorm:"index"`
	ParentID      string         `json:"parentId" gorm:"index"`
	Action        string         `json:"action"`
	Metadata      map[string]any `json:"metadata" gorm:"type:jsonb;serializer:json"`
	PerformedBy   string         `json:"performedBy"`
	RequestStatus *RequestStatus `json:"requestStatus"`
	CreatedAt     time.Time      `json:"createdAt" gorm:"index"`
}

func (HistoryEntry) TableName() string { return "history_entries" }

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	type plain HistoryEntry
	aux := struct {
		*plain
		ChildID     Identifier `json:"childId"`
		ParentID    Identifier `json:"parentId"`
		PerformedBy Identifier `json:"performedBy"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.ChildID = aux.ChildID.ID
	e.ParentID = aux.ParentID.ID
	e.PerformedBy = aux.PerformedBy.ID
	return nil
}
