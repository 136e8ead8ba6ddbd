package interfaces

import (
	"context"
	"time"
)

// Event types pushed over the websocket feed.
const (
	EventPolicyChanged          = "policy_changed"
	EventUnblockRequestCreated  = "unblock_request_created"
	EventUnblockRequestResolved = "unblock_request_resolved"
)

// PushNotifier delivers device push notifications. Delivery is best effort:
// callers log a failure and carry on.
type PushNotifier interface {
	NotifyParent(ctx context.Context, parentUID, title, body string, data map[string]string) error
	NotifyChild(ctx context.Context, childUID, title, body string, data map[string]string) error
}

// EventPublisher fans an event out to the live connections of the given users.
type EventPublisher interface {
	Publish(msg WebSocketMessage, userIDs ...string)
}

// WebSocketMessage is the envelope of every event on the websocket feed.
type WebSocketMessage struct {
	Type      string    `json:"type"`
	ChildID   string    `json:"childId,omitempty"`
	ParentID  string    `json:"parentId,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
