package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestStatus is the lifecycle state of an UnblockRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// ParseRequestStatus validates a status coming from a query string.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case RequestPending, RequestApproved, RequestRejected:
		return RequestStatus(s), nil
	}
	return "", fmt.Errorf("unknown request status %q", s)
}

// UnblockRequest is a child's request to have a manual block lifted.
type UnblockRequest struct {
	ID             string        `json:"id" gorm:"primaryKey"`
	ChildID        string        `json:"childId" gorm:"index"`
	ParentID       string        `json:"parentId" gorm:"index"`
	Reason         string        `json:"reason"`
	Status         RequestStatus `json:"status" gorm:"index"`
	ParentResponse *string       `json:"parentResponse"`
	CreatedAt      time.Time     `json:"createdAt"`
	RespondedAt    *time.Time    `json:"respondedAt"`

	// Child and Parent are filled when the payload embedded a summary.
	Child  *Summary `json:"-" gorm:"-"`
	Parent *Summary `json:"-" gorm:"-"`
}

func (UnblockRequest) TableName() string { return "unblock_requests" }

// IsPending reports whether the request still awaits a parent.
func (r UnblockRequest) IsPending() bool {
	return r.Status == RequestPending
}

func (r *UnblockRequest) UnmarshalJSON(data []byte) error {
	type plain UnblockRequest
	aux := struct {
		*plain
		ChildID  Identifier `json:"childId"`
		ParentID Identifier `json:"parentId"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.ChildID, r.Child = aux.ChildID.ID, aux.ChildID.Summary
	r.ParentID, r.Parent = aux.ParentID.ID, aux.ParentID.Summary
	return nil
}
