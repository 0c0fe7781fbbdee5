package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatedata/querykit/pkg/apperrors"
)

func floatPtr(v float64) *float64       { return &v }
func intPtr(v int) *int                 { return &v }
func datePtr(v string) *string          { return &v }
func aggPtr(a Aggregation) *Aggregation { return &a }

func TestFilterRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{
			name:   "categorical include",
			filter: &CategoricalFilter{Field: "Region", Values: []string{"East", "West"}},
		},
		{
			name:   "categorical exclude",
			filter: &CategoricalFilter{Field: "Region", Exclude: true, Values: []string{"South"}},
		},
		{
			name:   "categorical empty value set",
			filter: &CategoricalFilter{Field: "Segment", Values: []string{}},
		},
		{
			name:   "numeric range both bounds",
			filter: &NumericRangeFilter{Field: "Sales", Mode: QuantRange, Min: floatPtr(10), Max: floatPtr(500)},
		},
		{
			name:   "numeric range open ended",
			filter: &NumericRangeFilter{Field: "Sales", Mode: QuantRange},
		},
		{
			name:   "numeric min only",
			filter: &NumericRangeFilter{Field: "Profit", Mode: QuantMinOnly, Min: floatPtr(0)},
		},
		{
			name:   "numeric max only with aggregation",
			filter: &NumericRangeFilter{Field: "Profit", Mode: QuantMaxOnly, Max: floatPtr(1000), Aggregation: aggPtr(AggSum)},
		},
		{
			name:   "numeric only null",
			filter: &NumericRangeFilter{Field: "Discount", Mode: QuantOnlyNull},
		},
		{
			name:   "numeric only non null",
			filter: &NumericRangeFilter{Field: "Discount", Mode: QuantOnlyNonNull},
		},
		{
			name: "quantitative date range",
			filter: &DateFilter{
				Field: "Order Date", Mode: DateQuantitative, QuantMode: QuantRange,
				MinDate: datePtr("2024-01-01"), MaxDate: datePtr("2024-06-30"),
			},
		},
		{
			name: "quantitative date min only",
			filter: &DateFilter{
				Field: "Order Date", Mode: DateQuantitative, QuantMode: QuantMinOnly,
				MinDate: datePtr("2023-12-31"),
			},
		},
		{
			name: "quantitative date max only",
			filter: &DateFilter{
				Field: "Ship Date", Mode: DateQuantitative, QuantMode: QuantMaxOnly,
				MaxDate: datePtr("2024-03-15"),
			},
		},
		{
			name:   "quantitative date only null",
			filter: &DateFilter{Field: "Ship Date", Mode: DateQuantitative, QuantMode: QuantOnlyNull},
		},
		{
			name:   "quantitative date only non null",
			filter: &DateFilter{Field: "Ship Date", Mode: DateQuantitative, QuantMode: QuantOnlyNonNull},
		},
		{
			name:   "relative date last month",
			filter: &DateFilter{Field: "Order Date", Mode: DateRelative, PeriodType: PeriodMonths, RangeKind: RangeLast},
		},
		{
			name:   "relative date current quarter",
			filter: &DateFilter{Field: "Order Date", Mode: DateRelative, PeriodType: PeriodQuarters, RangeKind: RangeCurrent},
		},
		{
			name:   "relative date next week",
			filter: &DateFilter{Field: "Due Date", Mode: DateRelative, PeriodType: PeriodWeeks, RangeKind: RangeNext},
		},
		{
			name:   "relative date last n days",
			filter: &DateFilter{Field: "Order Date", Mode: DateRelative, PeriodType: PeriodDays, RangeKind: RangeLastN, RangeN: intPtr(30)},
		},
		{
			name:   "relative date next n years",
			filter: &DateFilter{Field: "Renewal", Mode: DateRelative, PeriodType: PeriodYears, RangeKind: RangeNextN, RangeN: intPtr(2)},
		},
		{
			name:   "relative date year to date",
			filter: &DateFilter{Field: "Order Date", Mode: DateRelative, PeriodType: PeriodYears, RangeKind: RangeToDate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.filter.Validate())

			data, err := json.Marshal(tt.filter)
			require.NoError(t, err)

			decoded, err := UnmarshalFilter(data)
			require.NoError(t, err)
			assert.Equal(t, tt.filter, decoded)

			// Re-serializing the decoded filter must reproduce the exact
			// wire object.
			again, err := json.Marshal(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestNilValuesNormalizedToEmptyList(t *testing.T) {
	data, err := json.Marshal(&CategoricalFilter{Field: "Segment"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"values":[]`)

	back, err := UnmarshalFilter(data)
	require.NoError(t, err)
	assert.Equal(t, &CategoricalFilter{Field: "Segment", Values: []string{}}, back)
}

func TestSetFilterWireShape(t *testing.T) {
	f := &CategoricalFilter{Field: "Region", Exclude: true, Values: []string{"East"}}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"filterType":"SET","field":{"fieldCaption":"Region"},"exclude":true,"values":["East"]}`,
		string(data))
}

func TestNumericMinOnlyOmitsMaxKey(t *testing.T) {
	f := &NumericRangeFilter{Field: "Sales", Mode: QuantMinOnly, Min: floatPtr(5)}
	data, err := json.Marshal(f)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, float64(5), obj["min"])
	_, hasMax := obj["max"]
	assert.False(t, hasMax, "max key must be absent, not null")
}

func TestRangeNPresentOnlyForCountedKinds(t *testing.T) {
	counted := &DateFilter{Field: "d", Mode: DateRelative, PeriodType: PeriodDays, RangeKind: RangeLastN, RangeN: intPtr(7)}
	data, err := json.Marshal(counted)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rangeN":7`)

	plain := &DateFilter{Field: "d", Mode: DateRelative, PeriodType: PeriodDays, RangeKind: RangeLast}
	data, err = json.Marshal(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "rangeN")
}

func TestUnmarshalUnknownFilterKind(t *testing.T) {
	_, err := UnmarshalFilter([]byte(`{"filterType":"TOP_N","field":{"fieldCaption":"Sales"}}`))
	require.ErrorIs(t, err, apperrors.ErrUnsupportedFilterKind)
}

func TestDecodeFiltersSkipsUnsupported(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"filterType":"SET","field":{"fieldCaption":"Region"},"exclude":false,"values":["East"]}`),
		json.RawMessage(`{"filterType":"MYSTERY","field":{"fieldCaption":"X"}}`),
		json.RawMessage(`{"filterType":"DATE","field":{"fieldCaption":"Order Date"},"periodType":"DAYS","dateRangeType":"LAST"}`),
	}

	filters, errs := DecodeFilters(raw)
	require.Len(t, filters, 2)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], apperrors.ErrUnsupportedFilterKind)
	assert.Equal(t, "Region", filters[0].FieldCaption())
	assert.Equal(t, "Order Date", filters[1].FieldCaption())
}

func TestFilterValidation(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"missing field", &CategoricalFilter{}},
		{"max on min-only", &NumericRangeFilter{Field: "s", Mode: QuantMinOnly, Min: floatPtr(1), Max: floatPtr(2)}},
		{"bounds on null test", &NumericRangeFilter{Field: "s", Mode: QuantOnlyNull, Min: floatPtr(1)}},
		{"bad aggregation", &NumericRangeFilter{Field: "s", Mode: QuantRange, Aggregation: aggPtr("MEDIAN")}},
		{"bad date format", &DateFilter{Field: "d", Mode: DateQuantitative, QuantMode: QuantMinOnly, MinDate: datePtr("01/02/2024")}},
		{"lastn without n", &DateFilter{Field: "d", Mode: DateRelative, PeriodType: PeriodDays, RangeKind: RangeLastN}},
		{"rangeN on plain last", &DateFilter{Field: "d", Mode: DateRelative, PeriodType: PeriodDays, RangeKind: RangeLast, RangeN: intPtr(3)}},
		{"bad period", &DateFilter{Field: "d", Mode: DateRelative, PeriodType: "FORTNIGHTS", RangeKind: RangeLast}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.filter.Validate())
		})
	}
}

func TestFilterCloneIsDetached(t *testing.T) {
	orig := &CategoricalFilter{Field: "Region", Values: []string{"East"}}
	clone := orig.Clone().(*CategoricalFilter)
	clone.Values[0] = "West"
	assert.Equal(t, "East", orig.Values[0])

	nf := &NumericRangeFilter{Field: "Sales", Mode: QuantRange, Min: floatPtr(1)}
	nc := nf.Clone().(*NumericRangeFilter)
	*nc.Min = 99
	assert.Equal(t, float64(1), *nf.Min)
}
