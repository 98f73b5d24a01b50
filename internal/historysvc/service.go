package historysvc

import (
	"context"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/common/logger"
	"search-orchestrator/internal/models"
)

// Config holds history-service behaviour switches.
type Config struct {
	// AutoProvisionUsers creates a placeholder user when a search is recorded
	// for an unknown id instead of answering 404.
	AutoProvisionUsers bool
}

type Service struct {
	config Config
	repo   Repository
	cache  *UserCache
	log    logger.Logger
}

func NewService(cfg Config, repo Repository, cache *UserCache, log logger.Logger) *Service {
	return &Service{
		config: cfg,
		repo:   repo,
		cache:  cache,
		log:    log,
	}
}

func (s *Service) CreateUser(ctx context.Context, cmd models.CreateUserCommand) (*models.User, error) {
	user, err := s.repo.CreateUser(ctx, cmd)
	if err != nil {
		return nil, err
	}
	s.cache.Remember(ctx, user.ID)
	s.log.Info("user created", map[string]interface{}{"userId": user.ID})
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// RecordSearch stores a history entry for an existing user.
func (s *Service) RecordSearch(ctx context.Context, cmd models.RecordSearchCommand) (*models.HistoryEntry, error) {
	exists, err := s.userExists(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if !s.config.AutoProvisionUsers {
			return nil, errors.NewNotFoundError(msgUserNotFound)
		}
		if err := s.repo.ProvisionUser(ctx, cmd.UserID); err != nil {
			return nil, err
		}
		s.cache.Remember(ctx, cmd.UserID)
		s.log.Info("provisioned placeholder user", map[string]interface{}{"userId": cmd.UserID})
	}

	return s.repo.InsertEntry(ctx, cmd)
}

// SaveSearch marks the user's entry as saved. Unknown users and unknown or
// foreign search ids are NOT_FOUND.
func (s *Service) SaveSearch(ctx context.Context, cmd models.SaveSearchCommand) (*models.HistoryEntry, error) {
	if err := s.requireUser(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	return s.repo.MarkSaved(ctx, cmd)
}

func (s *Service) ListHistory(ctx context.Context, userID string, saved *bool) ([]models.HistoryEntry, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, userID, saved)
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	exists, err := s.userExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFoundError(msgUserNotFound)
	}
	return nil
}

func (s *Service) userExists(ctx context.Context, id string) (bool, error) {
	if s.cache.Known(ctx, id) {
		return true, nil
	}
	exists, err := s.repo.UserExists(ctx, id)
	if err != nil {
		return false, err
	}
	if exists {
		s.cache.Remember(ctx, id)
	}
	return exists, nil
}
