package models

import (
	"encoding/json"
	"fmt"

	"github.com/slatedata/querykit/pkg/apperrors"
)

// Wire filterType discriminators. The remote query service overloads the
// remaining keys across these types, so (de)serialization dispatches on
// filterType first.
const (
	wireTypeSet          = "SET"
	wireTypeNumeric      = "QUANTITATIVE_NUMERICAL"
	wireTypeQuantDate    = "QUANTITATIVE_DATE"
	wireTypeRelativeDate = "DATE"
)

type wireFieldRef struct {
	FieldCaption string       `json:"fieldCaption"`
	Function     *Aggregation `json:"function,omitempty"`
}

// wireFilter is the superset of every filter shape the service accepts.
// Optional keys are pointers so that absence and zero stay distinct:
// an unbounded numeric filter omits min/max entirely, it never sends null.
type wireFilter struct {
	FilterType string       `json:"filterType"`
	Field      wireFieldRef `json:"field"`

	// SET
	Exclude *bool     `json:"exclude,omitempty"`
	Values  *[]string `json:"values,omitempty"`

	// QUANTITATIVE_NUMERICAL / QUANTITATIVE_DATE
	QuantitativeFilterType QuantMode `json:"quantitativeFilterType,omitempty"`
	Min                    *float64  `json:"min,omitempty"`
	Max                    *float64  `json:"max,omitempty"`
	MinDate                *string   `json:"minDate,omitempty"`
	MaxDate                *string   `json:"maxDate,omitempty"`

	// DATE (relative)
	PeriodType    PeriodType    `json:"periodType,omitempty"`
	DateRangeType DateRangeKind `json:"dateRangeType,omitempty"`
	RangeN        *int          `json:"rangeN,omitempty"`
}

func (f *CategoricalFilter) MarshalJSON() ([]byte, error) {
	values := f.Values
	if values == nil {
		values = []string{}
	}
	exclude := f.Exclude
	return json.Marshal(wireFilter{
		FilterType: wireTypeSet,
		Field:      wireFieldRef{FieldCaption: f.Field},
		Exclude:    &exclude,
		Values:     &values,
	})
}

func (f *NumericRangeFilter) MarshalJSON() ([]byte, error) {
	w := wireFilter{
		FilterType:             wireTypeNumeric,
		Field:                  wireFieldRef{FieldCaption: f.Field, Function: f.Aggregation},
		QuantitativeFilterType: f.Mode,
	}
	switch f.Mode {
	case QuantRange:
		w.Min, w.Max = f.Min, f.Max
	case QuantMinOnly:
		w.Min = f.Min
	case QuantMaxOnly:
		w.Max = f.Max
	}
	return json.Marshal(w)
}

func (f *DateFilter) MarshalJSON() ([]byte, error) {
	if f.Mode == DateRelative {
		return json.Marshal(wireFilter{
			FilterType:    wireTypeRelativeDate,
			Field:         wireFieldRef{FieldCaption: f.Field},
			PeriodType:    f.PeriodType,
			DateRangeType: f.RangeKind,
			RangeN:        f.RangeN,
		})
	}
	w := wireFilter{
		FilterType:             wireTypeQuantDate,
		Field:                  wireFieldRef{FieldCaption: f.Field},
		QuantitativeFilterType: f.QuantMode,
	}
	switch f.QuantMode {
	case QuantRange:
		w.MinDate, w.MaxDate = f.MinDate, f.MaxDate
	case QuantMinOnly:
		w.MinDate = f.MinDate
	case QuantMaxOnly:
		w.MaxDate = f.MaxDate
	}
	return json.Marshal(w)
}

// UnmarshalFilter decodes one wire filter object back into its variant.
// Unknown filterType values return ErrUnsupportedFilterKind so callers can
// skip the entry instead of aborting a whole load.
func UnmarshalFilter(data []byte) (Filter, error) {
	var w wireFilter
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err)
	}

	switch w.FilterType {
	case wireTypeSet:
		f := &CategoricalFilter{Field: w.Field.FieldCaption, Values: []string{}}
		if w.Exclude != nil {
			f.Exclude = *w.Exclude
		}
		if w.Values != nil {
			f.Values = *w.Values
		}
		return f, nil

	case wireTypeNumeric:
		return &NumericRangeFilter{
			Field:       w.Field.FieldCaption,
			Mode:        w.QuantitativeFilterType,
			Min:         w.Min,
			Max:         w.Max,
			Aggregation: w.Field.Function,
		}, nil

	case wireTypeQuantDate:
		return &DateFilter{
			Field:     w.Field.FieldCaption,
			Mode:      DateQuantitative,
			QuantMode: w.QuantitativeFilterType,
			MinDate:   w.MinDate,
			MaxDate:   w.MaxDate,
		}, nil

	case wireTypeRelativeDate:
		return &DateFilter{
			Field:      w.Field.FieldCaption,
			Mode:       DateRelative,
			PeriodType: w.PeriodType,
			RangeKind:  w.DateRangeType,
			RangeN:     w.RangeN,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFilterKind, w.FilterType)
}

// DecodeFilters decodes a list of raw filter objects, skipping entries
// that fail. The survivors keep their original order; errs carries one
// entry per skipped filter.
func DecodeFilters(raw []json.RawMessage) (filters []Filter, errs []error) {
	for i, r := range raw {
		f, err := UnmarshalFilter(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("filter %d: %w", i, err))
			continue
		}
		filters = append(filters, f)
	}
	return filters, errs
}
