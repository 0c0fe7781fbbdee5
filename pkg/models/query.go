package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/slatedata/querykit/pkg/apperrors"
)

// MaxDimensions is the most dimensions the query service accepts per
// request. Extra dimensions are truncated, not rejected.
const MaxDimensions = 10

// QueryDefinition is a named, persistable query: a datasource plus the
// dimensions, measures and filters to run against it. Identity key is
// Name, case-sensitive. Dimension order is display order only.
type QueryDefinition struct {
	Name           string            `json:"name"`
	DatasourceID   string            `json:"datasource_luid"`
	DatasourceName string            `json:"datasource_name"`
	Dimensions     []FieldRef        `json:"dimensions"`
	Measures       []AggregatedField `json:"measures"`
	Filters        []Filter          `json:"filters"`
	SavedAt        time.Time         `json:"saved_at"`
}

// queryDefinitionJSON mirrors QueryDefinition with filters held raw, so
// unmarshalling can dispatch each filter on its filterType.
type queryDefinitionJSON struct {
	Name           string            `json:"name"`
	DatasourceID   string            `json:"datasource_luid"`
	DatasourceName string            `json:"datasource_name"`
	Dimensions     []FieldRef        `json:"dimensions"`
	Measures       []AggregatedField `json:"measures"`
	Filters        []json.RawMessage `json:"filters"`
	SavedAt        time.Time         `json:"saved_at"`
}

// UnmarshalJSON decodes a stored definition. Filters of an unrecognized
// kind are dropped so one corrupt filter does not make the whole saved
// query unloadable; callers that need the per-filter errors decode the
// raw list with DecodeFilters themselves.
func (q *QueryDefinition) UnmarshalJSON(data []byte) error {
	var raw queryDefinitionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	filters, _ := DecodeFilters(raw.Filters)
	*q = QueryDefinition{
		Name:           raw.Name,
		DatasourceID:   raw.DatasourceID,
		DatasourceName: raw.DatasourceName,
		Dimensions:     raw.Dimensions,
		Measures:       raw.Measures,
		Filters:        filters,
		SavedAt:        raw.SavedAt,
	}
	return nil
}

// Validate checks the definition is runnable.
func (q *QueryDefinition) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("%w: query name is empty", apperrors.ErrValidation)
	}
	if q.DatasourceID == "" {
		return apperrors.ErrNoDatasourceSelected
	}
	for _, m := range q.Measures {
		if !m.Function.Valid() {
			return fmt.Errorf("%w: aggregation %q on measure %q", apperrors.ErrValidation, m.Function, m.Field.Name)
		}
	}
	for _, f := range q.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep, detached copy. Anything crossing a persistence or
// scheduling boundary goes through here so later edits to live state never
// leak into stored snapshots.
func (q *QueryDefinition) Clone() QueryDefinition {
	c := *q
	c.Dimensions = append([]FieldRef(nil), q.Dimensions...)
	c.Measures = append([]AggregatedField(nil), q.Measures...)
	c.Filters = CloneFilters(q.Filters)
	return c
}
