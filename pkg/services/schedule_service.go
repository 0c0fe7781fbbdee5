package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/models"
	"github.com/slatedata/querykit/pkg/repositories"
	"github.com/slatedata/querykit/pkg/scheduler"
)

// ScheduleService composes the schedule store and the trigger engine.
// The store is the source of truth; the engine only ever holds handles
// rebuilt from it, so a restart loses nothing.
type ScheduleService interface {
	List(ctx context.Context) ([]models.Schedule, error)

	// Save validates, persists and (re)arms the trigger. Saving an
	// existing name replaces both the stored entry and the live
	// trigger, leaving exactly one.
	Save(ctx context.Context, sched models.Schedule) error

	// Remove disarms the trigger and deletes the stored entry.
	Remove(ctx context.Context, name string) error

	// Replay rebuilds every trigger from the store. Called once at
	// startup; entries that fail to arm are logged and skipped.
	Replay(ctx context.Context) error
}

// ScheduleServiceDeps contains dependencies for ScheduleService.
type ScheduleServiceDeps struct {
	Repo   repositories.ScheduleRepository
	Engine *scheduler.Engine
	Logger *zap.Logger
}

type scheduleService struct {
	repo   repositories.ScheduleRepository
	engine *scheduler.Engine
	logger *zap.Logger
}

// NewScheduleService creates a ScheduleService.
func NewScheduleService(deps *ScheduleServiceDeps) ScheduleService {
	return &scheduleService{
		repo:   deps.Repo,
		engine: deps.Engine,
		logger: deps.Logger.Named("schedules"),
	}
}

var _ ScheduleService = (*scheduleService)(nil)

func (s *scheduleService) List(ctx context.Context) ([]models.Schedule, error) {
	return s.repo.List(ctx)
}

func (s *scheduleService) Save(ctx context.Context, sched models.Schedule) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, sched); err != nil {
		return err
	}
	if err := s.engine.Add(sched); err != nil {
		return err
	}
	s.logger.Info("schedule saved",
		zap.String("name", sched.Name),
		zap.String("cadence", sched.Cadence.Describe()))
	return nil
}

func (s *scheduleService) Remove(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	// The trigger may not exist if a startup replay skipped it.
	if err := s.engine.Remove(name); err != nil {
		s.logger.Debug("no live trigger for removed schedule",
			zap.String("name", name))
	}
	s.logger.Info("schedule removed", zap.String("name", name))
	return nil
}

func (s *scheduleService) Replay(ctx context.Context) error {
	schedules, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.engine.Replay(schedules)
	s.logger.Info("schedules replayed", zap.Int("count", len(schedules)))
	return nil
}
