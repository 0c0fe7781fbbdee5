package models

import (
	"fmt"
	"time"

	"github.com/slatedata/querykit/pkg/apperrors"
)

// QuantMode selects the shape of a quantitative (numeric or date) filter.
// The values match the wire contract's quantitativeFilterType verbatim.
type QuantMode string

const (
	QuantRange       QuantMode = "RANGE"
	QuantMinOnly     QuantMode = "MIN"
	QuantMaxOnly     QuantMode = "MAX"
	QuantOnlyNull    QuantMode = "ONLY_NULL"
	QuantOnlyNonNull QuantMode = "ONLY_NON_NULL"
)

func (m QuantMode) valid() bool {
	switch m {
	case QuantRange, QuantMinOnly, QuantMaxOnly, QuantOnlyNull, QuantOnlyNonNull:
		return true
	}
	return false
}

// PeriodType is the unit of a relative date filter.
type PeriodType string

const (
	PeriodDays     PeriodType = "DAYS"
	PeriodWeeks    PeriodType = "WEEKS"
	PeriodMonths   PeriodType = "MONTHS"
	PeriodQuarters PeriodType = "QUARTERS"
	PeriodYears    PeriodType = "YEARS"
)

func (p PeriodType) valid() bool {
	switch p {
	case PeriodDays, PeriodWeeks, PeriodMonths, PeriodQuarters, PeriodYears:
		return true
	}
	return false
}

// DateRangeKind selects which relative window a relative date filter covers.
type DateRangeKind string

const (
	RangeLast    DateRangeKind = "LAST"
	RangeCurrent DateRangeKind = "CURRENT"
	RangeNext    DateRangeKind = "NEXT"
	RangeLastN   DateRangeKind = "LASTN"
	RangeNextN   DateRangeKind = "NEXTN"
	RangeToDate  DateRangeKind = "TODATE"
)

func (k DateRangeKind) valid() bool {
	switch k {
	case RangeLast, RangeCurrent, RangeNext, RangeLastN, RangeNextN, RangeToDate:
		return true
	}
	return false
}

// NeedsN reports whether this range kind requires a rangeN count.
func (k DateRangeKind) NeedsN() bool {
	return k == RangeLastN || k == RangeNextN
}

// Filter is the closed union of query filter shapes. Exactly three
// variants exist: CategoricalFilter, NumericRangeFilter and DateFilter.
// Filters identify their field by caption only; that is all the wire
// contract carries, so it is all a filter stores.
type Filter interface {
	// FieldCaption returns the caption of the filtered field. Never empty
	// for a valid filter.
	FieldCaption() string
	Validate() error
	// Clone returns a deep, independently owned copy.
	Clone() Filter

	isFilter()
}

// CategoricalFilter keeps or excludes an explicit set of values on a
// string- or boolean-typed field. An empty value set is legal. A nil
// Values slice serializes as an empty list, so it deserializes back as
// []string{}, never nil.
type CategoricalFilter struct {
	Field   string
	Exclude bool
	Values  []string
}

func (f *CategoricalFilter) isFilter()            {}
func (f *CategoricalFilter) FieldCaption() string { return f.Field }

func (f *CategoricalFilter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("%w: categorical filter has no field", apperrors.ErrValidation)
	}
	return nil
}

func (f *CategoricalFilter) Clone() Filter {
	c := *f
	c.Values = append([]string(nil), f.Values...)
	return &c
}

// NumericRangeFilter bounds a numeric field. Min and Max are populated
// only when Mode requires them; for QuantRange either or both may be nil
// (open-ended). Aggregation, when set, filters the aggregated value.
type NumericRangeFilter struct {
	Field       string
	Mode        QuantMode
	Min         *float64
	Max         *float64
	Aggregation *Aggregation
}

func (f *NumericRangeFilter) isFilter()            {}
func (f *NumericRangeFilter) FieldCaption() string { return f.Field }

func (f *NumericRangeFilter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("%w: numeric filter has no field", apperrors.ErrValidation)
	}
	if !f.Mode.valid() {
		return fmt.Errorf("%w: numeric filter mode %q", apperrors.ErrValidation, f.Mode)
	}
	switch f.Mode {
	case QuantMinOnly:
		if f.Max != nil {
			return fmt.Errorf("%w: max set on a min-only filter", apperrors.ErrValidation)
		}
	case QuantMaxOnly:
		if f.Min != nil {
			return fmt.Errorf("%w: min set on a max-only filter", apperrors.ErrValidation)
		}
	case QuantOnlyNull, QuantOnlyNonNull:
		if f.Min != nil || f.Max != nil {
			return fmt.Errorf("%w: bounds set on a null-test filter", apperrors.ErrValidation)
		}
	}
	if f.Aggregation != nil && !f.Aggregation.Valid() {
		return fmt.Errorf("%w: aggregation %q", apperrors.ErrValidation, *f.Aggregation)
	}
	return nil
}

func (f *NumericRangeFilter) Clone() Filter {
	c := *f
	c.Min = cloneFloat(f.Min)
	c.Max = cloneFloat(f.Max)
	if f.Aggregation != nil {
		agg := *f.Aggregation
		c.Aggregation = &agg
	}
	return &c
}

// DateFilterMode distinguishes absolute (quantitative) from relative date
// filters.
type DateFilterMode string

const (
	DateQuantitative DateFilterMode = "QUANTITATIVE"
	DateRelative     DateFilterMode = "RELATIVE"
)

// DateFilter filters a date field, either by absolute bounds
// (quantitative) or by a window relative to the current date. Dates are
// ISO-8601 YYYY-MM-DD strings, the format the wire contract uses.
type DateFilter struct {
	Field string
	Mode  DateFilterMode

	// Quantitative
	QuantMode QuantMode
	MinDate   *string
	MaxDate   *string

	// Relative
	PeriodType PeriodType
	RangeKind  DateRangeKind
	RangeN     *int
}

func (f *DateFilter) isFilter()            {}
func (f *DateFilter) FieldCaption() string { return f.Field }

func (f *DateFilter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("%w: date filter has no field", apperrors.ErrValidation)
	}
	switch f.Mode {
	case DateQuantitative:
		if !f.QuantMode.valid() {
			return fmt.Errorf("%w: date filter submode %q", apperrors.ErrValidation, f.QuantMode)
		}
		for _, d := range []*string{f.MinDate, f.MaxDate} {
			if d == nil {
				continue
			}
			if _, err := time.Parse("2006-01-02", *d); err != nil {
				return fmt.Errorf("%w: date %q is not YYYY-MM-DD", apperrors.ErrValidation, *d)
			}
		}
	case DateRelative:
		if !f.PeriodType.valid() {
			return fmt.Errorf("%w: period type %q", apperrors.ErrValidation, f.PeriodType)
		}
		if !f.RangeKind.valid() {
			return fmt.Errorf("%w: date range kind %q", apperrors.ErrValidation, f.RangeKind)
		}
		if f.RangeKind.NeedsN() && f.RangeN == nil {
			return fmt.Errorf("%w: %s filter requires rangeN", apperrors.ErrValidation, f.RangeKind)
		}
		if !f.RangeKind.NeedsN() && f.RangeN != nil {
			return fmt.Errorf("%w: rangeN set on a %s filter", apperrors.ErrValidation, f.RangeKind)
		}
	default:
		return fmt.Errorf("%w: date filter mode %q", apperrors.ErrValidation, f.Mode)
	}
	return nil
}

func (f *DateFilter) Clone() Filter {
	c := *f
	c.MinDate = cloneString(f.MinDate)
	c.MaxDate = cloneString(f.MaxDate)
	if f.RangeN != nil {
		n := *f.RangeN
		c.RangeN = &n
	}
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// CloneFilters deep-copies a filter list.
func CloneFilters(filters []Filter) []Filter {
	if filters == nil {
		return nil
	}
	out := make([]Filter, len(filters))
	for i, f := range filters {
		out[i] = f.Clone()
	}
	return out
}
