package tableau

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/query"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:        srv.URL,
		APIVersion:     "3.25",
		SiteContentURL: "acme",
		TokenName:      "ci-token",
		TokenSecret:    "secret",
	}, zap.NewNop())
}

func TestSignIn(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/3.25/auth/signin", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		creds := body["credentials"].(map[string]any)
		assert.Equal(t, "ci-token", creds["personalAccessTokenName"])

		w.Write([]byte(`<tsResponse xmlns="http://tableau.com/api">
			<credentials token="tok-123">
				<site id="site-9" contentUrl="acme"/>
			</credentials>
		</tsResponse>`))
	}))

	creds, err := client.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credentials{Token: "tok-123", SiteID: "site-9"}, creds)
}

func TestSignInRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.SignIn(context.Background())
	require.ErrorIs(t, err, apperrors.ErrAuthenticationFailed)
}

func TestSignInMalformedXML(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not xml at all"))
	}))

	_, err := client.SignIn(context.Background())
	require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
}

func TestListDatasourcesAggregatesPages(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/3.25/sites/site-9/datasources", r.URL.Path)
		require.Equal(t, "tok-123", r.Header.Get("X-Tableau-Auth"))

		page := r.URL.Query().Get("pageNumber")
		switch page {
		case "1":
			fmt.Fprint(w, `<tsResponse xmlns="http://tableau.com/api">
				<pagination pageNumber="1" pageSize="100" totalAvailable="3"/>
				<datasources>
					<datasource id="a" name="Alpha"/>
					<datasource id="b" name="Beta"/>
				</datasources>
			</tsResponse>`)
		case "2":
			fmt.Fprint(w, `<tsResponse xmlns="http://tableau.com/api">
				<pagination pageNumber="2" pageSize="100" totalAvailable="3"/>
				<datasources>
					<datasource id="c" name="Gamma"/>
				</datasources>
			</tsResponse>`)
		default:
			t.Fatalf("unexpected page %q", page)
		}
	}))

	got, err := client.ListDatasources(context.Background(), Credentials{Token: "tok-123", SiteID: "site-9"})
	require.NoError(t, err)
	assert.Equal(t, []Datasource{{Name: "Alpha", LUID: "a"}, {Name: "Beta", LUID: "b"}, {Name: "Gamma", LUID: "c"}}, got)
}

func TestReadMetadata(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/vizql-data-service/read-metadata", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		ds := body["datasource"].(map[string]any)
		assert.Equal(t, "ds-1", ds["datasourceLuid"])

		fmt.Fprint(w, `{"data":[
			{"fieldName":"Region","dataType":"STRING"},
			{"fieldName":"Sales","dataType":"REAL"}
		]}`)
	}))

	fields, err := client.ReadMetadata(context.Background(), Credentials{Token: "t"}, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, []FieldMetadata{
		{FieldName: "Region", DataType: "STRING"},
		{FieldName: "Sales", DataType: "REAL"},
	}, fields)
}

func TestQueryDatasource(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/vizql-data-service/query-datasource", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"Region":"East","SUM(Sales)":1234.5}]}`)
	}))

	req, _, err := query.Build("ds-1", nil, nil, nil)
	require.NoError(t, err)

	records, err := client.QueryDatasource(context.Background(), Credentials{Token: "t"}, req)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "East", records[0]["Region"])
}

func TestQueryDatasourceUnauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req, _, err := query.Build("ds-1", nil, nil, nil)
	require.NoError(t, err)

	_, err = client.QueryDatasource(context.Background(), Credentials{Token: "stale"}, req)
	require.ErrorIs(t, err, apperrors.ErrAuthenticationFailed)
}

func TestQueryDatasourceServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	req, _, err := query.Build("ds-1", nil, nil, nil)
	require.NoError(t, err)

	_, err = client.QueryDatasource(context.Background(), Credentials{Token: "t"}, req)
	require.ErrorIs(t, err, apperrors.ErrTransport)
}
