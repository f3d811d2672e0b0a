package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"writemystory/pkg/otel"
	"writemystory/pkg/outbox"
	"writemystory/reply-service/internal/model"
)

type AnswerRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
}

func NewAnswerRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository) *AnswerRepository {
	return &AnswerRepository{db: db, outboxRepo: outboxRepo}
}

// CreateWithMedia stores the answer, its media and the outbox event in one transaction
func (r *AnswerRepository) CreateWithMedia(ctx context.Context, a *model.Answer, media []*model.MediaAnswer, routingKey string, payload any) error {
	const insertAnswer = `
		INSERT INTO answers (id, question_id, story_id, user_id, answer, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	const insertMedia = `
		INSERT INTO media_answers (id, answer_id, content_type, source_url, data, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	return otel.Observe(ctx, "answer.create", insertAnswer, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := tx.QueryRow(ctx, insertAnswer,
			a.ID,
			a.QuestionID,
			a.StoryID,
			a.UserID,
			a.Answer,
			a.Source,
		).Scan(&a.CreatedAt); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}

		for _, m := range media {
			if err := tx.QueryRow(ctx, insertMedia,
				m.ID,
				a.ID,
				m.ContentType,
				m.SourceURL,
				m.Data,
				m.SizeBytes,
			).Scan(&m.CreatedAt); err != nil {
				return fmt.Errorf("insert media answer: %w", err)
			}
		}

		if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "answer", &a.ID, routingKey, payload); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}
