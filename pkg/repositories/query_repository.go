package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/models"
)

// QueriesFileName is the saved-query store file inside the data dir.
const QueriesFileName = "saved_queries.json"

// QueryRepository provides access to saved query definitions. Name is the
// case-sensitive identity key. Values returned and stored are deep
// clones: callers never share memory with the store.
type QueryRepository interface {
	List(ctx context.Context) ([]models.QueryDefinition, error)
	Get(ctx context.Context, name string) (*models.QueryDefinition, error)
	// Save persists the definition. A duplicate name fails with
	// ErrConflict unless overwrite is set; the caller owns asking the
	// user before overwriting.
	Save(ctx context.Context, def models.QueryDefinition, overwrite bool) error
	Delete(ctx context.Context, name string) error
}

type queryRepository struct {
	file *jsonFile[models.QueryDefinition]
}

// NewQueryRepository creates a QueryRepository backed by
// saved_queries.json in dataDir.
func NewQueryRepository(dataDir string) QueryRepository {
	return &queryRepository{
		file: newJSONFile[models.QueryDefinition](filepath.Join(dataDir, QueriesFileName)),
	}
}

var _ QueryRepository = (*queryRepository)(nil)

func (r *queryRepository) List(ctx context.Context) ([]models.QueryDefinition, error) {
	items, err := r.file.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.QueryDefinition, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out, nil
}

func (r *queryRepository) Get(ctx context.Context, name string) (*models.QueryDefinition, error) {
	items, err := r.file.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Name == name {
			def := items[i].Clone()
			return &def, nil
		}
	}
	return nil, fmt.Errorf("%w: query %q", apperrors.ErrNotFound, name)
}

func (r *queryRepository) Save(ctx context.Context, def models.QueryDefinition, overwrite bool) error {
	if err := def.Validate(); err != nil {
		return err
	}
	snapshot := def.Clone()
	snapshot.SavedAt = time.Now().UTC()

	return r.file.mutate(ctx, func(items []models.QueryDefinition) ([]models.QueryDefinition, error) {
		for i := range items {
			if items[i].Name == snapshot.Name {
				if !overwrite {
					return nil, fmt.Errorf("%w: query %q already exists", apperrors.ErrConflict, snapshot.Name)
				}
				items[i] = snapshot
				return items, nil
			}
		}
		return append(items, snapshot), nil
	})
}

func (r *queryRepository) Delete(ctx context.Context, name string) error {
	return r.file.mutate(ctx, func(items []models.QueryDefinition) ([]models.QueryDefinition, error) {
		for i := range items {
			if items[i].Name == name {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: query %q", apperrors.ErrNotFound, name)
	})
}
