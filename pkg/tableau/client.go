// Package tableau is the gateway to the remote analytics platform: REST
// sign-in and datasource listing (XML) plus the VizQL data service
// (JSON) for metadata and query execution.
package tableau

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/slatedata/querykit/pkg/apperrors"
	"github.com/slatedata/querykit/pkg/query"
)

const defaultPageSize = 100

// Config identifies the remote site and the personal access token used to
// sign in. TokenSecret comes from the environment only; it is never
// logged.
type Config struct {
	// BaseURL is the cluster root, e.g. https://prod-useast-a.online.tableau.com.
	BaseURL string
	// APIVersion is the REST API version segment, e.g. "3.25".
	APIVersion string
	// SiteContentURL is the site's contentUrl ("" for the default site).
	SiteContentURL string
	TokenName      string
	TokenSecret    string
}

// Credentials is the session state a successful sign-in yields.
type Credentials struct {
	Token  string
	SiteID string
}

// Datasource is one published datasource on the site.
type Datasource struct {
	Name string
	LUID string
}

// FieldMetadata is one field of a datasource, as reported by read-metadata.
type FieldMetadata struct {
	FieldName string `json:"fieldName"`
	DataType  string `json:"dataType"`
}

// Record is one result row. Keys are the field captions of the request.
type Record map[string]any

// Client talks to the remote platform. Safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 2 * time.Minute},
		logger: logger.Named("tableau"),
	}
}

func (c *Client) restURL(path string) string {
	return fmt.Sprintf("%s/api/%s%s", c.cfg.BaseURL, c.cfg.APIVersion, path)
}

func (c *Client) vizqlURL(path string) string {
	return fmt.Sprintf("%s/api/v1/vizql-data-service%s", c.cfg.BaseURL, path)
}

type signInRequest struct {
	Credentials struct {
		PersonalAccessTokenName   string `json:"personalAccessTokenName"`
		PersonalAccessTokenSecret string `json:"personalAccessTokenSecret"`
		Site                      struct {
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
	} `json:"credentials"`
}

type signInResponse struct {
	XMLName     xml.Name `xml:"tsResponse"`
	Credentials struct {
		Token string `xml:"token,attr"`
		Site  struct {
			ID string `xml:"id,attr"`
		} `xml:"site"`
	} `xml:"credentials"`
}

// SignIn exchanges the personal access token for a session token and the
// site id. A rejected token surfaces as ErrAuthenticationFailed.
func (c *Client) SignIn(ctx context.Context) (Credentials, error) {
	var body signInRequest
	body.Credentials.PersonalAccessTokenName = c.cfg.TokenName
	body.Credentials.PersonalAccessTokenSecret = c.cfg.TokenSecret
	body.Credentials.Site.ContentURL = c.cfg.SiteContentURL

	payload, err := json.Marshal(body)
	if err != nil {
		return Credentials{}, fmt.Errorf("marshal sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.restURL("/auth/signin"), bytes.NewReader(payload))
	if err != nil {
		return Credentials{}, fmt.Errorf("create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: sign-in: %v", apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("%w: sign-in returned status %d", apperrors.ErrAuthenticationFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: read sign-in response: %v", apperrors.ErrTransport, err)
	}

	var parsed signInResponse
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return Credentials{}, fmt.Errorf("%w: sign-in XML: %v", apperrors.ErrMalformedResponse, err)
	}
	if parsed.Credentials.Token == "" {
		return Credentials{}, fmt.Errorf("%w: sign-in response missing token", apperrors.ErrMalformedResponse)
	}

	c.logger.Info("signed in", zap.String("site_id", parsed.Credentials.Site.ID))
	return Credentials{Token: parsed.Credentials.Token, SiteID: parsed.Credentials.Site.ID}, nil
}

type datasourcesResponse struct {
	XMLName    xml.Name `xml:"tsResponse"`
	Pagination struct {
		TotalAvailable int `xml:"totalAvailable,attr"`
	} `xml:"pagination"`
	Datasources struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Name string `xml:"name,attr"`
		} `xml:"datasource"`
	} `xml:"datasources"`
}

// ListDatasources fetches every published datasource on the site,
// aggregating all pages before returning.
func (c *Client) ListDatasources(ctx context.Context, creds Credentials) ([]Datasource, error) {
	var all []Datasource
	for page := 1; ; page++ {
		url := fmt.Sprintf("%s?pageSize=%d&pageNumber=%d",
			c.restURL("/sites/"+creds.SiteID+"/datasources"), defaultPageSize, page)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create datasources request: %w", err)
		}
		req.Header.Set("X-Tableau-Auth", creds.Token)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: list datasources: %v", apperrors.ErrTransport, err)
		}
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: list datasources returned 401", apperrors.ErrAuthenticationFailed)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: list datasources returned status %d", apperrors.ErrTransport, resp.StatusCode)
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: read datasources response: %v", apperrors.ErrTransport, readErr)
		}

		var parsed datasourcesResponse
		if err := xml.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("%w: datasources XML: %v", apperrors.ErrMalformedResponse, err)
		}

		for _, ds := range parsed.Datasources.Items {
			all = append(all, Datasource{Name: ds.Name, LUID: ds.ID})
		}

		if len(parsed.Datasources.Items) == 0 || len(all) >= parsed.Pagination.TotalAvailable {
			break
		}
	}

	c.logger.Debug("fetched datasources", zap.Int("count", len(all)))
	return all, nil
}

type metadataResponse struct {
	Data []FieldMetadata `json:"data"`
}

// ReadMetadata lists the fields of a datasource.
func (c *Client) ReadMetadata(ctx context.Context, creds Credentials, datasourceID string) ([]FieldMetadata, error) {
	body := map[string]any{
		"datasource": map[string]string{"datasourceLuid": datasourceID},
	}
	var parsed metadataResponse
	if err := c.postVizQL(ctx, creds, "/read-metadata", body, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

type queryResponse struct {
	Data []Record `json:"data"`
}

// QueryDatasource executes a built request and returns the result rows.
func (c *Client) QueryDatasource(ctx context.Context, creds Credentials, req query.Request) ([]Record, error) {
	var parsed queryResponse
	if err := c.postVizQL(ctx, creds, "/query-datasource", req, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *Client) postVizQL(ctx context.Context, creds Credentials, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.vizqlURL(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("X-Tableau-Auth", creds.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s returned 401", apperrors.ErrAuthenticationFailed, path)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned status %d: %s", apperrors.ErrTransport, path, resp.StatusCode, raw)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", apperrors.ErrMalformedResponse, path, err)
	}
	return nil
}
