package domain

import "time"

// DefaultLanguage is used for users that never picked a language.
const DefaultLanguage = "ru"

// User is a Telegram identity that has chosen a language at least once.
type User struct {
	ID          int64
	DisplayName string
	Language    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
