package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/models"
)

func testDefinition(name string) models.QueryDefinition {
	return models.QueryDefinition{
		Name:           name,
		DatasourceID:   "ds-luid-1",
		DatasourceName: "Superstore",
		Dimensions: []models.FieldRef{
			{Name: "Region", Kind: models.KindDimension, DataType: models.DataTypeString},
		},
		Measures: []models.AggregatedField{
			{
				Field:    models.FieldRef{Name: "Sales", Kind: models.KindMeasure, DataType: models.DataTypeReal},
				Function: models.AggSum,
			},
		},
		Filters: []models.Filter{
			&models.CategoricalFilter{Field: "Region", Values: []string{"West"}},
		},
	}
}

func TestQueryRepositoryListEmptyWhenFileMissing(t *testing.T) {
	repo := NewQueryRepository(t.TempDir())

	defs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestQueryRepositorySaveAndGet(t *testing.T) {
	repo := NewQueryRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testDefinition("west sales"), false))

	got, err := repo.Get(ctx, "west sales")
	require.NoError(t, err)
	assert.Equal(t, "ds-luid-1", got.DatasourceID)
	assert.False(t, got.SavedAt.IsZero(), "Save should stamp SavedAt")
}

func TestQueryRepositorySaveDuplicateWithoutOverwrite(t *testing.T) {
	repo := NewQueryRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testDefinition("dup"), false))

	err := repo.Save(ctx, testDefinition("dup"), false)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestQueryRepositorySaveOverwriteReplaces(t *testing.T) {
	repo := NewQueryRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testDefinition("dup"), false))

	updated := testDefinition("dup")
	updated.DatasourceID = "ds-luid-2"
	require.NoError(t, repo.Save(ctx, updated, true))

	got, err := repo.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "ds-luid-2", got.DatasourceID)

	defs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestQueryRepositorySaveRejectsInvalid(t *testing.T) {
	repo := NewQueryRepository(t.TempDir())

	def := testDefinition("broken")
	def.DatasourceID = ""

	err := repo.Save(context.Background(), def, false)
	assert.Error(t, err)
}

func TestQueryRepositoryDelete(t *testing.T) {
	repo := NewQueryRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testDefinition("gone"), false))
	require.NoError(t, repo.Delete(ctx, "gone"))

	_, err := repo.Get(ctx, "gone")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = repo.Delete(ctx, "gone")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestQueryRepositoryReturnsDetachedCopies(t *testing.T) {
	repo := NewQueryRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testDefinition("shared"), false))

	first, err := repo.Get(ctx, "shared")
	require.NoError(t, err)
	first.Dimensions[0].Name = "mutated"

	second, err := repo.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "Region", second.Dimensions[0].Name)
}

func TestQueryRepositoryPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	require.NoError(t, NewQueryRepository(dir).Save(ctx, testDefinition("durable"), false))

	got, err := NewQueryRepository(dir).Get(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Name)

	// The store file is plain indented JSON a user could inspect.
	raw, err := os.ReadFile(filepath.Join(dir, QueriesFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  ")
}

func TestQueryRepositoryCorruptFileSurfacesError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, QueriesFileName), []byte("{not json"), 0o644))

	_, err := NewQueryRepository(dir).List(context.Background())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
}
