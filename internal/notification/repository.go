// Package notification is the persistence collaborator behind the live core.
// The hub writes a record when a direct message misses its recipient; the
// client-side aggregator polls the REST surface and marks records read.
package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const TypeMessage = "message"

// Record is one stored notification.
type Record struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	TargetUserID string    `json:"target_user_id"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO notifications (id, type, title, message, target_user_id, read, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Type, rec.Title, rec.Message, rec.TargetUserID, rec.Read, rec.CreatedAt)
	return err
}

// MessageMissed records a direct message that found its recipient offline.
// Implements the hub's NotificationWriter.
func (r *Repository) MessageMissed(ctx context.Context, recipientID, senderID, text string) error {
	return r.Create(ctx, &Record{
		Type:         TypeMessage,
		Title:        "New message",
		Message:      fmt.Sprintf("You have a new message from %s", senderID),
		TargetUserID: recipientID,
	})
}

// ForUser returns a user's notifications, newest first.
func (r *Repository) ForUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	query := `
		SELECT id, type, title, message, target_user_id, read, created_at
		FROM notifications
		WHERE target_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Message, &rec.TargetUserID, &rec.Read, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// MarkRead flags one of the user's notifications as read. Marking a record
// that does not exist or belongs to someone else is a no-op.
func (r *Repository) MarkRead(ctx context.Context, userID, id string) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND target_user_id = $2`
	_, err := r.db.ExecContext(ctx, query, id, userID)
	return err
}

// MarkAllRead flags every notification of the user as read.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) error {
	query := `UPDATE notifications SET read = TRUE WHERE target_user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
