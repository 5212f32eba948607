package domain

import "time"

// Role indicates who produced a log entry.
type Role string

const (
	RoleUser    Role = "user"
	RoleSupport Role = "support"
	RoleSystem  Role = "system"
)

// LogEntry is an append-only record of one relayed or system message.
type LogEntry struct {
	ID         int64
	TicketID   int64
	Role       Role
	SenderID   int64
	SenderName string
	Text       string
	MediaRef   string
	MediaKind  MediaKind
	MessageRef int64
	CreatedAt  time.Time
}

// HasMedia reports whether the entry references an attachment.
func (e LogEntry) HasMedia() bool {
	return e.MediaRef != ""
}
