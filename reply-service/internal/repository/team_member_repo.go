package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"writemystory/pkg/otel"
	"writemystory/reply-service/internal/model"
)

type TeamMemberRepository struct {
	db *pgxpool.Pool
}

func NewTeamMemberRepository(db *pgxpool.Pool) *TeamMemberRepository {
	return &TeamMemberRepository{db: db}
}

const memberColumns = `id, story_id, user_id, name, email, phone, role, status, created_at`

// shared addresses resolve to the most recently invited member
const memberOrder = ` ORDER BY created_at DESC, id LIMIT 1`

// FindActiveByEmail matches case-insensitively. An empty storyID searches every story.
func (r *TeamMemberRepository) FindActiveByEmail(ctx context.Context, email string, storyID string) (*model.TeamMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM story_team_members
		WHERE status = 'active'
		  AND lower(trim(email)) = $1
		  AND ($2 = '' OR story_id::text = $2)` + memberOrder

	return r.findOne(ctx, "team_member.find_by_email", query, email, storyID)
}

// FindActiveByPhone compares digits and leading plus only
func (r *TeamMemberRepository) FindActiveByPhone(ctx context.Context, phone string, storyID string) (*model.TeamMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM story_team_members
		WHERE status = 'active'
		  AND regexp_replace(regexp_replace(phone, '^whatsapp:', '', 'i'), '[^0-9+]', '', 'g') = $1
		  AND ($2 = '' OR story_id::text = $2)` + memberOrder

	return r.findOne(ctx, "team_member.find_by_phone", query, phone, storyID)
}

func (r *TeamMemberRepository) findOne(ctx context.Context, op, query string, args ...any) (*model.TeamMember, error) {
	var m model.TeamMember
	err := otel.Observe(ctx, op, query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, args...).Scan(
			&m.ID,
			&m.StoryID,
			&m.UserID,
			&m.Name,
			&m.Email,
			&m.Phone,
			&m.Role,
			&m.Status,
			&m.CreatedAt,
		)
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}
