package model

import "time"

type Attachment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	CommentID *int64    `json:"comment_id"`
	Filename  string    `json:"filename"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
