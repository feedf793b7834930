package models

import (
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Direction tells whether a message was originated or received by its owner
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ThreatLevel is the ordered category derived from a risk score
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "Low"
	ThreatMedium   ThreatLevel = "Medium"
	ThreatHigh     ThreatLevel = "High"
	ThreatCritical ThreatLevel = "Critical"
)

// Severity returns the position of the level in Low < Medium < High < Critical.
// Unknown levels sort below Low.
func (l ThreatLevel) Severity() int {
	switch l {
	case ThreatLow:
		return 0
	case ThreatMedium:
		return 1
	case ThreatHigh:
		return 2
	case ThreatCritical:
		return 3
	default:
		return -1
	}
}

// RequiresAdmin reports whether mail at this level can only be released by an admin
func (l ThreatLevel) RequiresAdmin() bool {
	return l == ThreatHigh || l == ThreatCritical
}

// ProcessingStatus is the lifecycle state of a message's handling decision
type ProcessingStatus string

const (
	StatusPending            ProcessingStatus = "pending"
	StatusAccepted           ProcessingStatus = "accepted"
	StatusRejected           ProcessingStatus = "rejected"
	StatusBlockedAdminReview ProcessingStatus = "blocked_admin_review"
	StatusApprovedByAdmin    ProcessingStatus = "approved_by_admin"
	StatusRejectedByAdmin    ProcessingStatus = "rejected_by_admin"
)

// Valid reports whether s is one of the known statuses
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected,
		StatusBlockedAdminReview, StatusApprovedByAdmin, StatusRejectedByAdmin:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s
func (s ProcessingStatus) IsTerminal() bool {
	return s.Valid() && s != StatusPending && s != StatusBlockedAdminReview
}

// RiskFactors holds the per-dimension contributions to a risk score
type RiskFactors struct {
	Content    float64 `json:"content"`
	Attachment float64 `json:"attachment"`
	Links      float64 `json:"links"`
	Context    float64 `json:"context"`
}

// Max returns the largest factor
func (f RiskFactors) Max() float64 {
	m := f.Content
	for _, v := range []float64{f.Attachment, f.Links, f.Context} {
		if v > m {
			m = v
		}
	}
	return m
}

// Attachment describes a file named on a message. Only its name and kind are tracked.
type Attachment struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// NewAttachment builds an Attachment from a filename, deriving the kind from its extension.
// Returns nil for an empty name.
func NewAttachment(name string) *Attachment {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if kind == "" {
		kind = "file"
	}
	return &Attachment{Name: name, Kind: kind}
}

// Email represents a scored message. Everything except ProcessingStatus is
// fixed at creation.
type Email struct {
	ID               string           `gorm:"primaryKey;size:64" json:"id"`
	Sender           string           `gorm:"not null;size:255;index" json:"sender"`
	Recipient        string           `gorm:"not null;size:255;index" json:"recipient"`
	Subject          string           `json:"subject"`
	Body             string           `json:"body"`
	Attachment       *Attachment      `gorm:"-" json:"attachment,omitempty"`
	AttachmentName   string           `gorm:"size:255" json:"-"`
	AttachmentKind   string           `gorm:"size:50" json:"-"`
	Direction        Direction        `gorm:"not null;size:16;index" json:"direction"`
	RiskScore        float64          `gorm:"not null" json:"risk_score"`
	ThreatLevel      ThreatLevel      `gorm:"not null;size:16" json:"threat_level"`
	RiskFactors      RiskFactors      `gorm:"embedded;embeddedPrefix:factor_" json:"risk_factors"`
	Analysis         string           `json:"analysis"`
	Suggestions      []string         `gorm:"serializer:json" json:"suggestions"`
	ProcessingStatus ProcessingStatus `gorm:"not null;size:32;index" json:"processing_status"`
	Timestamp        time.Time        `gorm:"not null;index" json:"timestamp"`
}

// TableName returns the table name for Email
func (Email) TableName() string {
	return "emails"
}

// BeforeSave flattens the attachment into its columns
func (e *Email) BeforeSave(tx *gorm.DB) error {
	if e.Attachment != nil {
		e.AttachmentName = e.Attachment.Name
		e.AttachmentKind = e.Attachment.Kind
	}
	return nil
}

// AfterFind rebuilds the attachment from its columns
func (e *Email) AfterFind(tx *gorm.DB) error {
	if e.AttachmentName != "" {
		e.Attachment = &Attachment{Name: e.AttachmentName, Kind: e.AttachmentKind}
	}
	if e.Suggestions == nil {
		e.Suggestions = []string{}
	}
	return nil
}

// IsOwnedBy reports whether the address is the sender or recipient
func (e *Email) IsOwnedBy(address string) bool {
	address = strings.ToLower(address)
	return strings.ToLower(e.Sender) == address || strings.ToLower(e.Recipient) == address
}

// MailView selects a slice of a user's mail, mirroring the console tabs
type MailView string

const (
	ViewInbox      MailView = "inbox"
	ViewSent       MailView = "sent"
	ViewRiskAlerts MailView = "risk_alerts"
	ViewAdminPanel MailView = "admin_panel"
	ViewAll        MailView = "all"
)

// Valid reports whether v is a known view
func (v MailView) Valid() bool {
	switch v {
	case ViewInbox, ViewSent, ViewRiskAlerts, ViewAdminPanel, ViewAll:
		return true
	}
	return false
}

// EmailStats summarizes the mail visible to a user
type EmailStats struct {
	TotalMails     int64   `json:"total_mails"`
	HighRiskMails  int64   `json:"high_risk_mails"`
	ThreatsBlocked int64   `json:"threats_blocked"`
	ActiveUsers    int64   `json:"active_users"`
	AverageRisk    float64 `json:"average_risk"`
	SafetyIndex    float64 `json:"safety_index"`
}
