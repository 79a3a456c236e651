package models

import (
	"time"
)

// Status is the lifecycle state of an access request
type Status string

const (
	StatusNew      Status = "new"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// AllStatuses lists every valid status in lifecycle order
var AllStatuses = []Status{StatusNew, StatusPending, StatusApproved, StatusDenied}

// Valid reports whether s is one of the four lifecycle states
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// AccessRequest is a visitor's request for the file behind a QR token.
type AccessRequest struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"              json:"-"`
	Token          string     `gorm:"type:varchar(36);uniqueIndex;not null" json:"token"`
	RequesterEmail string     `gorm:"type:varchar(320);index"               json:"requester_email"`
	FileLink       string     `gorm:"type:text;not null"                    json:"file_link"`
	Status         Status     `gorm:"type:varchar(20);index;not null"       json:"status"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`

	// Owner action capability, only outstanding while pending
	ActionCodeHash  string     `gorm:"type:varchar(100)" json:"-"`
	ActionExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (AccessRequest) TableName() string {
	return "access_requests"
}

func (r *AccessRequest) IsApproved() bool {
	return r.Status == StatusApproved
}

func (r *AccessRequest) IsDenied() bool {
	return r.Status == StatusDenied
}

// AcceptsSubmission reports whether a visitor may (re)submit an email for this request
func (r *AccessRequest) AcceptsSubmission() bool {
	return r.Status == StatusNew || r.Status == StatusPending
}

// ApprovalExpired reports whether an approved request has outlived the approval window.
// A zero window never expires.
func (r *AccessRequest) ApprovalExpired(window time.Duration, now time.Time) bool {
	if !r.IsApproved() || window <= 0 {
		return false
	}
	if r.ApprovedAt == nil {
		return true
	}
	return !r.ApprovedAt.Add(window).After(now)
}

// ActionExpired reports whether the outstanding owner action code can no longer be used
func (r *AccessRequest) ActionExpired(now time.Time) bool {
	return r.ActionCodeHash == "" || r.ActionExpiresAt == nil || !r.ActionExpiresAt.After(now)
}
