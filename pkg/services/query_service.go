package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/models"
	"github.com/slatedata/querykit/pkg/repositories"
)

// QueryService manages the named-query store.
type QueryService interface {
	List(ctx context.Context) ([]models.QueryDefinition, error)
	Get(ctx context.Context, name string) (*models.QueryDefinition, error)
	Save(ctx context.Context, def models.QueryDefinition, overwrite bool) error
	Delete(ctx context.Context, name string) error
}

type queryService struct {
	repo   repositories.QueryRepository
	logger *zap.Logger
}

// NewQueryService creates a QueryService over the given repository.
func NewQueryService(repo repositories.QueryRepository, logger *zap.Logger) QueryService {
	return &queryService{
		repo:   repo,
		logger: logger.Named("queries"),
	}
}

var _ QueryService = (*queryService)(nil)

func (s *queryService) List(ctx context.Context) ([]models.QueryDefinition, error) {
	return s.repo.List(ctx)
}

func (s *queryService) Get(ctx context.Context, name string) (*models.QueryDefinition, error) {
	return s.repo.Get(ctx, name)
}

func (s *queryService) Save(ctx context.Context, def models.QueryDefinition, overwrite bool) error {
	if err := s.repo.Save(ctx, def, overwrite); err != nil {
		return err
	}
	s.logger.Info("query saved",
		zap.String("name", def.Name),
		zap.Bool("overwrite", overwrite))
	return nil
}

func (s *queryService) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.Info("query deleted", zap.String("name", name))
	return nil
}
