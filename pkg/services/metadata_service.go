package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/export"
	"github.com/slatedata/querykit/pkg/models"
	"github.com/slatedata/querykit/pkg/query"
	"github.com/slatedata/querykit/pkg/retry"
	"github.com/slatedata/querykit/pkg/tableau"
)

// MaxDistinctValues caps the field-value probe. An unfiltered
// single-dimension query against a wide datasource can return far more
// than anyone will pick from.
const MaxDistinctValues = 1000

// FieldCatalog is a datasource's fields split by role.
type FieldCatalog struct {
	Dimensions []models.FieldRef
	Measures   []models.FieldRef
}

// MetadataService reads datasource structure from the server.
type MetadataService interface {
	// Datasources lists every datasource visible to the session,
	// across all pages.
	Datasources(ctx context.Context) ([]tableau.Datasource, error)

	// Fields reads the datasource's field metadata and classifies it:
	// STRING, DATE and BOOLEAN fields are dimensions, INTEGER and REAL
	// are measures. Unknown data types are dropped with a log line.
	Fields(ctx context.Context, datasourceID string) (FieldCatalog, error)

	// FieldValues probes the distinct values of one dimension, in
	// server order, deduplicated and capped at MaxDistinctValues.
	// Non-string cells are stringified; null cells are skipped.
	FieldValues(ctx context.Context, datasourceID, field string) ([]string, error)
}

// MetadataServiceDeps contains dependencies for MetadataService.
type MetadataServiceDeps struct {
	API         TableauAPI
	Credentials CredentialSource
	Retry       *retry.Config // Optional: defaults to retry.DefaultConfig()
	Logger      *zap.Logger
}

type metadataService struct {
	api    TableauAPI
	creds  CredentialSource
	retry  *retry.Config
	logger *zap.Logger
}

// NewMetadataService creates a MetadataService.
func NewMetadataService(deps *MetadataServiceDeps) MetadataService {
	cfg := deps.Retry
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	return &metadataService{
		api:    deps.API,
		creds:  deps.Credentials,
		retry:  cfg,
		logger: deps.Logger.Named("metadata"),
	}
}

var _ MetadataService = (*metadataService)(nil)

func (s *metadataService) Datasources(ctx context.Context) ([]tableau.Datasource, error) {
	return retry.DoWithReauth(ctx, s.retry, s.creds.Invalidate, func() ([]tableau.Datasource, error) {
		creds, err := s.creds.GetValid(ctx)
		if err != nil {
			return nil, err
		}
		return s.api.ListDatasources(ctx, creds)
	})
}

func (s *metadataService) Fields(ctx context.Context, datasourceID string) (FieldCatalog, error) {
	meta, err := retry.DoWithReauth(ctx, s.retry, s.creds.Invalidate, func() ([]tableau.FieldMetadata, error) {
		creds, err := s.creds.GetValid(ctx)
		if err != nil {
			return nil, err
		}
		return s.api.ReadMetadata(ctx, creds, datasourceID)
	})
	if err != nil {
		return FieldCatalog{}, err
	}
	return s.classify(meta), nil
}

func (s *metadataService) classify(meta []tableau.FieldMetadata) FieldCatalog {
	var catalog FieldCatalog
	for _, m := range meta {
		dt := models.DataType(m.DataType)
		switch dt {
		case models.DataTypeString, models.DataTypeDate, models.DataTypeBoolean:
			catalog.Dimensions = append(catalog.Dimensions, models.FieldRef{
				Name:     m.FieldName,
				Kind:     models.KindDimension,
				DataType: dt,
			})
		case models.DataTypeInteger, models.DataTypeReal:
			catalog.Measures = append(catalog.Measures, models.FieldRef{
				Name:     m.FieldName,
				Kind:     models.KindMeasure,
				DataType: dt,
			})
		default:
			s.logger.Debug("skipping field with unknown data type",
				zap.String("field", m.FieldName),
				zap.String("data_type", m.DataType))
		}
	}
	return catalog
}

func (s *metadataService) FieldValues(ctx context.Context, datasourceID, field string) ([]string, error) {
	req, _, err := query.Build(datasourceID,
		[]models.FieldRef{{Name: field, Kind: models.KindDimension}}, nil, nil)
	if err != nil {
		return nil, err
	}

	records, err := retry.DoWithReauth(ctx, s.retry, s.creds.Invalidate, func() ([]tableau.Record, error) {
		creds, err := s.creds.GetValid(ctx)
		if err != nil {
			return nil, err
		}
		return s.api.QueryDatasource(ctx, creds, req)
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(records))
	values := make([]string, 0, len(records))
	for _, rec := range records {
		raw, ok := rec[field]
		if !ok || raw == nil {
			continue
		}
		// Booleans and numbers are valid categorical values too, so
		// every non-null cell is stringified rather than filtered to
		// strings only.
		v := export.CellString(raw)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
		if len(values) >= MaxDistinctValues {
			s.logger.Warn("distinct value probe truncated",
				zap.String("field", field),
				zap.Int("cap", MaxDistinctValues))
			break
		}
	}
	return values, nil
}
