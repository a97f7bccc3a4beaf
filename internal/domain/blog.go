package domain

import "time"

type BlogState string

const (
	BlogStateDraft     BlogState = "draft"
	BlogStatePublished BlogState = "published"
)

// ValidState reports whether s is one of the two recognised blog states.
func ValidState(s BlogState) bool {
	return s == BlogStateDraft || s == BlogStatePublished
}

// Blog represents a post with its draft/published workflow state.
// Author is populated on reads; only AuthorID is persisted on the blog row.
type Blog struct {
	ID          string
	Title       string
	Description string
	Body        string
	Tags        []string
	AuthorID    string
	Author      *User
	State       BlogState
	ReadCount   int64
	ReadingTime int
	CreatedAt   time.Time
}
