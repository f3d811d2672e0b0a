package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"writemystory/pkg/otel"
	"writemystory/reply-service/internal/model"
)

type QuestionRepository struct {
	db *pgxpool.Pool
}

func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

const questionColumns = `q.id, q.story_id, q.question, q.sent_at, q.created_at,
	COALESCE(q.forwarded_to, '{}'), q.forward_count, q.last_forward_method`

func scanQuestion(row interface{ Scan(...any) error }) (*model.Question, error) {
	var q model.Question
	err := row.Scan(
		&q.ID,
		&q.StoryID,
		&q.Question,
		&q.SentAt,
		&q.CreatedAt,
		&q.ForwardedTo,
		&q.ForwardCount,
		&q.LastForwardMethod,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) GetQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions q WHERE q.id = $1`

	var q *model.Question
	err := otel.Observe(ctx, "question.get", query, func(ctx context.Context) error {
		var err error
		q, err = scanQuestion(r.db.QueryRow(ctx, query, id))
		return err
	})
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

// LatestUnansweredQuestion returns the newest question of storyID without an answer row
func (r *QuestionRepository) LatestUnansweredQuestion(ctx context.Context, storyID string) (*model.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions q
		WHERE q.story_id = $1
		  AND NOT EXISTS (SELECT 1 FROM answers a WHERE a.question_id = q.id)
		ORDER BY q.created_at DESC, q.id
		LIMIT 1
	`

	var q *model.Question
	err := otel.Observe(ctx, "question.latest_unanswered", query, func(ctx context.Context) error {
		var err error
		q, err = scanQuestion(r.db.QueryRow(ctx, query, storyID))
		return err
	})
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}
