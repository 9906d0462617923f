package models

import "time"

// Reminder is a queued one-shot notification for a chat. It is delivered once
// RemindAt has passed and is never rescheduled.
type Reminder struct {
	ID        int64      `json:"id" db:"id"`
	ChatID    int64      `json:"chat_id" db:"chat_id"`
	Title     string     `json:"title" db:"title"`
	Text      string     `json:"text" db:"text"`
	RemindAt  time.Time  `json:"remind_at" db:"remind_at"`
	Active    bool       `json:"active" db:"active"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsDue returns true if the reminder should fire at now
func (r *Reminder) IsDue(now time.Time) bool {
	if !r.Active {
		return false
	}
	return !now.Before(r.RemindAt)
}
