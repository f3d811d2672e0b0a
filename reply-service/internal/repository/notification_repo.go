package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"writemystory/pkg/otel"
	"writemystory/reply-service/internal/model"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert writes the notification once per source record.
// It returns false when a row for n.SourceID already exists.
func (r *NotificationRepository) Insert(ctx context.Context, n *model.ReplyNotification) (bool, error) {
	query := `
		INSERT INTO reply_notifications (story_id, user_id, question_id, channel, message, source_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_id) DO NOTHING
		RETURNING id, created_at
	`

	var inserted bool
	err := otel.Observe(ctx, "notification.insert", query, func(ctx context.Context) error {
		err := r.db.QueryRow(ctx, query,
			n.StoryID,
			n.UserID,
			n.QuestionID,
			n.Channel,
			n.Message,
			n.SourceID,
		).Scan(&n.ID, &n.CreatedAt)
		if err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return inserted, err
}
