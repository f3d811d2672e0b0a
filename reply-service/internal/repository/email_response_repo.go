package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"writemystory/pkg/otel"
	"writemystory/pkg/outbox"
	"writemystory/reply-service/internal/model"
)

const defaultListLimit = 50

type EmailResponseRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
}

func NewEmailResponseRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository) *EmailResponseRepository {
	return &EmailResponseRepository{db: db, outboxRepo: outboxRepo}
}

const responseColumns = `id, question_id, story_id, team_member_id, team_member_name, sender_email,
	response_content, email_message_id, status, created_at, updated_at`

func scanResponse(row pgx.Row) (*model.EmailResponse, error) {
	var e model.EmailResponse
	err := row.Scan(
		&e.ID,
		&e.QuestionID,
		&e.StoryID,
		&e.TeamMemberID,
		&e.TeamMemberName,
		&e.SenderEmail,
		&e.ResponseContent,
		&e.EmailMessageID,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateWithEvent inserts a received response and its outbox event in one transaction.
// No uniqueness is enforced on email_message_id.
func (r *EmailResponseRepository) CreateWithEvent(ctx context.Context, e *model.EmailResponse, routingKey string, payload any) error {
	const query = `
		INSERT INTO email_responses (id, question_id, story_id, team_member_id, team_member_name,
			sender_email, response_content, email_message_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	return otel.Observe(ctx, "email_response.create", query, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := tx.QueryRow(ctx, query,
			e.ID,
			e.QuestionID,
			e.StoryID,
			e.TeamMemberID,
			e.TeamMemberName,
			e.SenderEmail,
			e.ResponseContent,
			e.EmailMessageID,
			e.Status,
		).Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
			return fmt.Errorf("insert email response: %w", err)
		}

		if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "email_response", &e.ID, routingKey, payload); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

func (r *EmailResponseRepository) GetByID(ctx context.Context, id string) (*model.EmailResponse, error) {
	query := `SELECT ` + responseColumns + ` FROM email_responses WHERE id = $1`

	var e *model.EmailResponse
	err := otel.Observe(ctx, "email_response.get", query, func(ctx context.Context) error {
		var err error
		e, err = scanResponse(r.db.QueryRow(ctx, query, id))
		return err
	})
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// List returns responses newest first
func (r *EmailResponseRepository) List(ctx context.Context, f model.EmailResponseFilter) ([]*model.EmailResponse, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.StoryID != "" {
		args = append(args, f.StoryID)
		conds = append(conds, fmt.Sprintf("story_id = $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	query := `SELECT ` + responseColumns + ` FROM email_responses`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	responses := []*model.EmailResponse{}
	err := otel.Observe(ctx, "email_response.list", query, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanResponse(rows)
			if err != nil {
				return err
			}
			responses = append(responses, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list email responses: %w", err)
	}
	return responses, nil
}

// UpdateStatus moves a response from one status to the next.
// It returns model.ErrInvalidTransition when the row is no longer in from.
func (r *EmailResponseRepository) UpdateStatus(ctx context.Context, id string, from, to model.ResponseStatus) (*model.EmailResponse, error) {
	query := `
		UPDATE email_responses
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + responseColumns

	var e *model.EmailResponse
	err := otel.Observe(ctx, "email_response.update_status", query, func(ctx context.Context) error {
		var err error
		e, err = scanResponse(r.db.QueryRow(ctx, query, id, from, to))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// lost a race with another moderator
			return nil, model.ErrInvalidTransition
		}
		return nil, fmt.Errorf("update email response status: %w", err)
	}
	return e, nil
}

// CountUnmatchedBefore counts responses without a question created before cutoff
func (r *EmailResponseRepository) CountUnmatchedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM email_responses
		WHERE question_id IS NULL AND status = 'received' AND created_at < $1
	`

	var n int
	err := otel.Observe(ctx, "email_response.count_unmatched", query, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, cutoff).Scan(&n)
	})
	return n, err
}
