package entity

import "time"

// Post belongs to exactly one author. AuthorID and CreatedAt are set at
// creation and never change afterwards.
type Post struct {
	ID        string
	Title     string
	Content   string
	AuthorID  string
	CreatedAt time.Time
}
