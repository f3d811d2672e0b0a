package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"writemystory/pkg/otel"
	"writemystory/reply-service/internal/model"
)

type StoryRepository struct {
	db *pgxpool.Pool
}

func NewStoryRepository(db *pgxpool.Pool) *StoryRepository {
	return &StoryRepository{db: db}
}

func (r *StoryRepository) GetStoryByID(ctx context.Context, id string) (*model.Story, error) {
	query := `
		SELECT id, user_id, subject_type, subject_name, created_at
		FROM projects
		WHERE id = $1
	`

	var s model.Story
	err := otel.Observe(ctx, "story.get", query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, id).Scan(
			&s.ID,
			&s.UserID,
			&s.SubjectType,
			&s.SubjectName,
			&s.CreatedAt,
		)
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}
