package query

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/models"
)

func TestBuildFieldOrder(t *testing.T) {
	dims := []models.FieldRef{{Name: "Region"}, {Name: "Segment"}}
	measures := []models.AggregatedField{
		{Field: models.FieldRef{Name: "Sales"}, Function: models.AggSum},
		{Field: models.FieldRef{Name: "Profit"}, Function: models.AggAvg},
	}

	req, warnings, err := Build("ds-1", dims, measures, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "ds-1", req.Datasource.DatasourceLuid)

	require.Len(t, req.Query.Fields, 4)
	assert.Equal(t, Field{FieldCaption: "Region"}, req.Query.Fields[0])
	assert.Equal(t, Field{FieldCaption: "Segment"}, req.Query.Fields[1])
	assert.Equal(t, Field{FieldCaption: "Sales", Function: models.AggSum}, req.Query.Fields[2])
	assert.Equal(t, Field{FieldCaption: "Profit", Function: models.AggAvg}, req.Query.Fields[3])
}

func TestBuildDimensionCap(t *testing.T) {
	dims := make([]models.FieldRef, 15)
	for i := range dims {
		dims[i] = models.FieldRef{Name: fmt.Sprintf("Dim %02d", i)}
	}

	req, warnings, err := Build("ds-1", dims, nil, nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnTooManyDimensions, warnings[0])

	require.Len(t, req.Query.Fields, 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprintf("Dim %02d", i), req.Query.Fields[i].FieldCaption)
	}
}

func TestBuildRequiresDatasource(t *testing.T) {
	_, _, err := Build("", nil, nil, nil)
	require.ErrorIs(t, err, apperrors.ErrNoDatasourceSelected)
}

func TestBuildPayloadShape(t *testing.T) {
	req, _, err := Build("ds-9",
		[]models.FieldRef{{Name: "Region"}},
		[]models.AggregatedField{{Field: models.FieldRef{Name: "Sales"}, Function: models.AggSum}},
		[]models.Filter{&models.CategoricalFilter{Field: "Region", Values: []string{"East"}}},
	)
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"datasource": {"datasourceLuid": "ds-9"},
		"query": {
			"fields": [
				{"fieldCaption": "Region"},
				{"fieldCaption": "Sales", "function": "SUM"}
			],
			"filters": [
				{"filterType":"SET","field":{"fieldCaption":"Region"},"exclude":false,"values":["East"]}
			]
		}
	}`, string(data))
}

func TestBuildFromDefinition(t *testing.T) {
	def := &models.QueryDefinition{
		Name:         "Q",
		DatasourceID: "ds-2",
		Dimensions:   []models.FieldRef{{Name: "Region"}},
	}
	req, _, err := BuildFromDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, "ds-2", req.Datasource.DatasourceLuid)

	_, _, err = BuildFromDefinition(nil)
	assert.Error(t, err)
}
