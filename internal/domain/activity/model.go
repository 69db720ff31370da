package activity

import "time"

// ActivityType represents the type of audit event
type ActivityType string

const (
	TypeLogin                    ActivityType = "login"
	TypeLoginFailed              ActivityType = "login_failed"
	TypeCompanySelected          ActivityType = "company_selected"
	TypeAccessDenied             ActivityType = "access_denied"
	TypeNotificationAcknowledged ActivityType = "notification_acknowledged"
)

// ActivityEntry represents an event in the portal audit log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	Login        string       `json:"login"`
	Company      string       `json:"company,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
