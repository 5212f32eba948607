package domain

// StepCount is the fixed number of intake questions.
const StepCount = 7

// StepAnswer is the user's answer to one intake question. Immutable once the ticket exists.
type StepAnswer struct {
	TicketID  int64     `json:"ticket_id,omitempty"`
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	MediaRef  string    `json:"media_ref,omitempty"`
	MediaKind MediaKind `json:"media_kind,omitempty"`
}

// HasMedia reports whether the answer carries an attachment.
func (a StepAnswer) HasMedia() bool {
	return a.MediaRef != ""
}
