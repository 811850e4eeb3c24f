package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jdelorme/fieldsync/internal/model"
)

type AttachmentStore struct {
	db *sql.DB
}

func NewAttachmentStore(db *sql.DB) *AttachmentStore {
	return &AttachmentStore{db: db}
}

func scanAttachment(scanner interface{ Scan(...any) error }) (*model.Attachment, error) {
	var a model.Attachment
	err := scanner.Scan(&a.ID, &a.TaskID, &a.CommentID, &a.Filename, &a.Data, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const attachmentCols = `id, task_id, comment_id, filename, data, created_at`

// Create stores a decoded attachment. commentID is nil for attachments
// uploaded directly on the task.
func (s *AttachmentStore) Create(taskID int64, commentID *int64, filename string, data []byte) (*model.Attachment, error) {
	result, err := s.db.Exec(
		`INSERT INTO attachments (task_id, comment_id, filename, data) VALUES (?, ?, ?, ?)`,
		taskID, commentID, filename, data,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+attachmentCols+` FROM attachments WHERE id = ?`, id)
	return scanAttachment(row)
}

func (s *AttachmentStore) ListForTask(taskID int64) ([]model.Attachment, error) {
	rows, err := s.db.Query(`SELECT `+attachmentCols+` FROM attachments WHERE task_id = ? ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

type CommentStore struct {
	db *sql.DB
}

func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

func (s *CommentStore) Create(taskID, authorID int64, body string, createdAt time.Time) (*model.Comment, error) {
	result, err := s.db.Exec(
		`INSERT INTO comments (task_id, author_id, body, created_at) VALUES (?, ?, ?, ?)`,
		taskID, authorID, body, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT id, task_id, author_id, body, created_at FROM comments WHERE id = ?`, id)
	var c model.Comment
	if err := row.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

func (s *CommentStore) ListForTask(taskID int64) ([]model.Comment, error) {
	rows, err := s.db.Query(`SELECT id, task_id, author_id, body, created_at FROM comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
