package chat

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository is the pgx-backed message archive. It sits outside the routing
// core: the hub writes to it off the hot path and the history API reads it.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveDirect(ctx context.Context, msg *DirectMessage) error {
	query := `INSERT INTO messages (id, sender_id, receiver_id, body, file_url, sent_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), msg.SenderID, msg.ReceiverID, msg.Text, msg.FileURL, time.Now().UTC())
	return err
}

func (r *Repository) SaveGroup(ctx context.Context, msg *GroupMessage) error {
	query := `INSERT INTO group_messages (id, group_id, sender_id, sender_name, body, file_url, sent_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(), msg.GroupID, msg.SenderID, msg.SenderName, msg.Text, msg.FileURL, time.Now().UTC())
	return err
}

// RecentDirect returns the newest messages exchanged between two users,
// newest first.
func (r *Repository) RecentDirect(ctx context.Context, userID, peerID string, limit int) ([]*StoredMessage, error) {
	query := `
		SELECT id, sender_id, receiver_id, body, file_url, sent_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, peerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*StoredMessage
	for rows.Next() {
		msg := &StoredMessage{}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Body, &msg.FileURL, &msg.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// RecentGroup returns the newest messages in a room, newest first.
func (r *Repository) RecentGroup(ctx context.Context, groupID string, limit int) ([]*StoredGroupMessage, error) {
	query := `
		SELECT id, group_id, sender_id, sender_name, body, file_url, sent_at
		FROM group_messages
		WHERE group_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*StoredGroupMessage
	for rows.Next() {
		msg := &StoredGroupMessage{}
		if err := rows.Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.SenderName, &msg.Body, &msg.FileURL, &msg.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
