package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"writemystory/reply-service/internal/model"
)

// notFound maps pgx.ErrNoRows to model.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
