package account

import "time"

// AuditEvent is one append-only security event.
type AuditEvent struct {
	ID        int64     `json:"id"`
	AccountID *int64    `json:"user_id,omitempty"`
	EventType string    `json:"event_type"`
	Email     string    `json:"email,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountIDPtr is a convenience for populating AuditEvent.AccountID.
func AccountIDPtr(id int64) *int64 {
	return &id
}
