package moderation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"writemystory/pkg/logger"
	"writemystory/reply-service/internal/model"
)

type Store interface {
	GetByID(ctx context.Context, id string) (*model.EmailResponse, error)
	List(ctx context.Context, f model.EmailResponseFilter) ([]*model.EmailResponse, error)
	UpdateStatus(ctx context.Context, id string, from, to model.ResponseStatus) (*model.EmailResponse, error)
}

// Service applies moderator actions to stored email responses
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) List(ctx context.Context, f model.EmailResponseFilter) ([]*model.EmailResponse, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, f.Status)
	}
	return s.store.List(ctx, f)
}

// SetStatus advances a response by one step: received → reviewed → integrated.
// Returns model.ErrNotFound or model.ErrInvalidTransition.
func (s *Service) SetStatus(ctx context.Context, id string, to model.ResponseStatus, moderatorID string) (*model.EmailResponse, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, to)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: email response %q", model.ErrNotFound, id)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !current.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, current.Status, to)
	}

	updated, err := s.store.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("Email response status changed",
		zap.String("email_response_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("moderator_id", moderatorID),
	)
	return updated, nil
}
