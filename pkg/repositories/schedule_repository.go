package repositories

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/models"
)

// SchedulesFileName is the schedule store file inside the data dir.
const SchedulesFileName = "saved_schedules.json"

// ScheduleRepository is the single source of truth for schedules. The
// trigger engine only ever holds handles derived from this store, never
// the reverse. Saving an existing name updates in place.
type ScheduleRepository interface {
	List(ctx context.Context) ([]models.Schedule, error)
	Get(ctx context.Context, name string) (*models.Schedule, error)
	Save(ctx context.Context, sched models.Schedule) error
	Delete(ctx context.Context, name string) error
}

type scheduleRepository struct {
	file *jsonFile[models.Schedule]
}

// NewScheduleRepository creates a ScheduleRepository backed by
// saved_schedules.json in dataDir.
func NewScheduleRepository(dataDir string) ScheduleRepository {
	return &scheduleRepository{
		file: newJSONFile[models.Schedule](filepath.Join(dataDir, SchedulesFileName)),
	}
}

var _ ScheduleRepository = (*scheduleRepository)(nil)

func (r *scheduleRepository) List(ctx context.Context) ([]models.Schedule, error) {
	items, err := r.file.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Schedule, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out, nil
}

func (r *scheduleRepository) Get(ctx context.Context, name string) (*models.Schedule, error) {
	items, err := r.file.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Name == name {
			sched := items[i].Clone()
			return &sched, nil
		}
	}
	return nil, fmt.Errorf("%w: schedule %q", apperrors.ErrNotFound, name)
}

func (r *scheduleRepository) Save(ctx context.Context, sched models.Schedule) error {
	snapshot := sched.Clone()

	return r.file.mutate(ctx, func(items []models.Schedule) ([]models.Schedule, error) {
		for i := range items {
			if items[i].Name == snapshot.Name {
				items[i] = snapshot
				return items, nil
			}
		}
		return append(items, snapshot), nil
	})
}

func (r *scheduleRepository) Delete(ctx context.Context, name string) error {
	return r.file.mutate(ctx, func(items []models.Schedule) ([]models.Schedule, error) {
		for i := range items {
			if items[i].Name == name {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: schedule %q", apperrors.ErrNotFound, name)
	})
}
