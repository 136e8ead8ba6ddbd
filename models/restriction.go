package models

// RestrictionReason names the policy signal that restricts a child.
type RestrictionReason string

const (
	ReasonNone              RestrictionReason = "none"
	ReasonManualBlock       RestrictionReason = "manual_block"
	ReasonOutsideTimeWindow RestrictionReason = "outside_time_window"
	ReasonQuotaExceeded     RestrictionReason = "quota_exceeded"
)

// RestrictionStatus is the point-in-time verdict on a child's access.
// It is derived on demand and never stored.
type RestrictionStatus struct {
	IsRestricted      bool              `json:"isRestricted"`
	Reason            RestrictionReason `json:"reason"`
	Message           string            `json:"message,omitempty"`
	CanRequestUnblock bool              `json:"canRequestUnblock"`
}
