package models

// FieldKind distinguishes grouping fields from aggregated fields.
type FieldKind string

const (
	KindDimension FieldKind = "DIMENSION"
	KindMeasure   FieldKind = "MEASURE"
)

// DataType is the remote platform's type for a field, as reported by
// read-metadata.
type DataType string

const (
	DataTypeString  DataType = "STRING"
	DataTypeDate    DataType = "DATE"
	DataTypeBoolean DataType = "BOOLEAN"
	DataTypeInteger DataType = "INTEGER"
	DataTypeReal    DataType = "REAL"
)

// IsQualitative reports whether fields of this type are offered as
// dimensions. Everything numeric is a measure.
func (d DataType) IsQualitative() bool {
	switch d {
	case DataTypeString, DataTypeDate, DataTypeBoolean:
		return true
	}
	return false
}

// FieldRef identifies a queryable field. Immutable once fetched from
// metadata.
type FieldRef struct {
	Name     string    `json:"name"`
	Kind     FieldKind `json:"kind,omitempty"`
	DataType DataType  `json:"data_type,omitempty"`
}

// Aggregation is the function applied to a measure. The values match the
// wire contract verbatim.
type Aggregation string

const (
	AggSum   Aggregation = "SUM"
	AggMin   Aggregation = "MIN"
	AggMax   Aggregation = "MAX"
	AggAvg   Aggregation = "AVG"
	AggCount Aggregation = "COUNT"
)

// Valid reports whether a is one of the supported aggregation functions.
func (a Aggregation) Valid() bool {
	switch a {
	case AggSum, AggMin, AggMax, AggAvg, AggCount:
		return true
	}
	return false
}

// AggregatedField pairs a measure with its aggregation function. Only
// measures carry aggregations; dimensions never do.
type AggregatedField struct {
	Field    FieldRef    `json:"field"`
	Function Aggregation `json:"function"`
}
