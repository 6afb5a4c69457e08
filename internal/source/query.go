package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bluefin-ops/healthdeck/internal/models"
)

const (
	defaultQueryBaseURL = "https://api.applicationinsights.io"
	queryTimeout        = 30 * time.Second
)

// flowRunQuery is the fixed analytical query for workflow-run telemetry:
// a 7-day lookback over flow-run completion events, scoped to one
// environment. The query text is a static asset, not user input.
const flowRunQuery = `customEvents
| where timestamp > ago(7d)
| where name == "FlowRunCompleted"
| where tostring(customDimensions.EnvironmentId) == "%s"
| project
    timestamp,
    id = tostring(customDimensions.Id),
    runId = tostring(customDimensions.RunId),
    environmentId = tostring(customDimensions.EnvironmentId),
    displayName = tostring(customDimensions.DisplayName),
    name = tostring(customDimensions.FlowName),
    errorCode = tostring(customDimensions.ErrorCode),
    errorMessage = tostring(customDimensions.ErrorMessage),
    success = customDimensions.Success
| order by timestamp desc`

// FlowRunQuery returns the fixed flow-run query scoped to the given
// environment identifier.
func FlowRunQuery(environmentID string) string {
	return fmt.Sprintf(flowRunQuery, environmentID)
}

// QueryConfig holds the connection settings for the telemetry query API.
type QueryConfig struct {
	BaseURL string        // API base URL (default: the public endpoint)
	AppID   string        // application identifier (secret)
	APIKey  string        // API key credential (secret)
	Timeout time.Duration // per-request timeout (default 30s)
}

// Validate validates the query source configuration.
func (c *QueryConfig) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("app id is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// QueryClient issues analytical queries against a log-telemetry query
// API and parses the columnar result envelope.
type QueryClient struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
}

// NewQueryClient creates a query API client.
func NewQueryClient(cfg QueryConfig) (*QueryClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid query config: %w", err)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultQueryBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = queryTimeout
	}

	return &QueryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   cfg.AppID,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// QueryColumn is one declared column of a query result table.
type QueryColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryTable is one result table of a query response envelope. Rows are
// positional; the declared column list gives each position its name.
type QueryTable struct {
	Name    string        `json:"name"`
	Columns []QueryColumn `json:"columns"`
	Rows    [][]any       `json:"rows"`
}

// queryEnvelope is the response envelope of the query API.
type queryEnvelope struct {
	Tables []QueryTable `json:"tables"`
}

// Fetch runs the given query and returns the primary result table.
//
// Failure classes: network or HTTP failure yields an UnavailableError;
// a non-JSON body or an envelope without a usable table yields a
// MalformedError. A valid envelope with zero rows is not an error.
func (c *QueryClient) Fetch(ctx context.Context, query string) (*QueryTable, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal query body: %w", err)
	}

	u := fmt.Sprintf("%s/v1/apps/%s/query", c.baseURL, c.appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, &UnavailableError{Source: models.SourceFlowRuns, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UnavailableError{Source: models.SourceFlowRuns, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UnavailableError{
			Source: models.SourceFlowRuns,
			Err:    fmt.Errorf("query returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	var envelope queryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &MalformedError{
			Source: models.SourceFlowRuns,
			Reason: fmt.Sprintf("response is not valid JSON: %v", err),
		}
	}

	if len(envelope.Tables) == 0 {
		return nil, &MalformedError{
			Source: models.SourceFlowRuns,
			Reason: "envelope contains no tables",
		}
	}

	table := &envelope.Tables[0]
	if len(table.Columns) == 0 {
		return nil, &MalformedError{
			Source: models.SourceFlowRuns,
			Reason: "result table declares no columns",
		}
	}

	return table, nil
}
