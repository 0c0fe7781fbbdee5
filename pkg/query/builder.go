// Package query assembles the wire payload for the remote data-query
// service from a dimension/measure/filter selection. It is a pure
// transformation: no I/O, no state.
package query

import (
	"fmt"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/models"
)

// Field is one entry of the payload's field list. Dimensions carry only
// their caption; measures additionally carry the aggregation function.
type Field struct {
	FieldCaption string             `json:"fieldCaption"`
	Function     models.Aggregation `json:"function,omitempty"`
}

// Request is the payload POSTed to query-datasource.
type Request struct {
	Datasource Datasource `json:"datasource"`
	Query      Query      `json:"query"`
}

type Datasource struct {
	DatasourceLuid string `json:"datasourceLuid"`
}

type Query struct {
	Fields  []Field         `json:"fields"`
	Filters []models.Filter `json:"filters"`
}

// Warning is a non-fatal signal produced while building a request.
type Warning string

// WarnTooManyDimensions reports that the dimension list exceeded the
// service cap and was truncated to the first models.MaxDimensions entries.
const WarnTooManyDimensions Warning = "too many dimensions selected; truncated to the first 10"

// Build assembles the wire payload: dimensions first (display order
// preserved, capped at models.MaxDimensions), then measures with their
// aggregation functions, then filters. Exceeding the dimension cap is a
// warning, not a failure; an empty datasource id is the only error.
func Build(datasourceID string, dims []models.FieldRef, measures []models.AggregatedField, filters []models.Filter) (Request, []Warning, error) {
	if datasourceID == "" {
		return Request{}, nil, apperrors.ErrNoDatasourceSelected
	}

	var warnings []Warning
	if len(dims) > models.MaxDimensions {
		dims = dims[:models.MaxDimensions]
		warnings = append(warnings, WarnTooManyDimensions)
	}

	fields := make([]Field, 0, len(dims)+len(measures))
	for _, d := range dims {
		fields = append(fields, Field{FieldCaption: d.Name})
	}
	for _, m := range measures {
		fields = append(fields, Field{FieldCaption: m.Field.Name, Function: m.Function})
	}

	if filters == nil {
		filters = []models.Filter{}
	}

	return Request{
		Datasource: Datasource{DatasourceLuid: datasourceID},
		Query:      Query{Fields: fields, Filters: filters},
	}, warnings, nil
}

// BuildFromDefinition builds the payload for a saved definition.
func BuildFromDefinition(def *models.QueryDefinition) (Request, []Warning, error) {
	if def == nil {
		return Request{}, nil, fmt.Errorf("nil query definition")
	}
	return Build(def.DatasourceID, def.Dimensions, def.Measures, def.Filters)
}
