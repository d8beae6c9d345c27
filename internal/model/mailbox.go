package model

import "time"

// Inquiry is a question sent through the public form.  Anyone may write
// one; the phone number is how the sender finds the answer later.
type Inquiry struct {
	ID         uint64     `json:"id"`
	UserName   string     `json:"user_name"`
	Phone      string     `json:"phone"`
	Content    string     `json:"content"`
	Answer     *string    `json:"answer,omitempty"`
	IsAnswered bool       `json:"is_answered"`
	CreatedAt  time.Time  `json:"created_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// Story is a message sent to the organisers to be read out or shown at the
// event.  Stories are soft-deleted.
type Story struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Title     *string   `json:"title,omitempty"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type StoryStats struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}
