package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/bluefin-ops/healthdeck/internal/models"
)

const tableTimeout = 30 * time.Second

// TableConfig holds the connection settings for the alert entity store.
type TableConfig struct {
	ConnectionString string        // account connection string (secret)
	TableName        string        // table holding alert entities
	Timeout          time.Duration // per-fetch timeout (default 30s)
}

// Validate validates the table source configuration.
func (c *TableConfig) Validate() error {
	if c.ConnectionString == "" {
		return fmt.Errorf("connection string is required")
	}
	if c.TableName == "" {
		return fmt.Errorf("table name is required")
	}
	return nil
}

// TableClient reads alert entities from an Azure Table store.
type TableClient struct {
	table   *aztables.Client
	timeout time.Duration
}

// NewTableClient creates a client from the account connection string.
func NewTableClient(cfg TableConfig) (*TableClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table config: %w", err)
	}

	// The loader's refresh is the only retry; the transport never adds
	// its own.
	opts := &aztables.ClientOptions{}
	opts.Retry.MaxRetries = -1

	svc, err := aztables.NewServiceClientFromConnectionString(cfg.ConnectionString, opts)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = tableTimeout
	}

	return &TableClient{
		table:   svc.NewClient(cfg.TableName),
		timeout: timeout,
	}, nil
}

// Fetch retrieves every alert entity from the store, following
// continuation tokens until the query is exhausted. A partial page is
// never returned as if complete: any failure mid-pagination fails the
// whole fetch with an UnavailableError.
func (c *TableClient) Fetch(ctx context.Context) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var entities []map[string]any
	pager := c.table.NewListEntitiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &UnavailableError{
				Source: models.SourceAlerts,
				Err:    fmt.Errorf("list entities: %w", err),
			}
		}
		for _, raw := range page.Entities {
			var entity map[string]any
			if err := json.Unmarshal(raw, &entity); err != nil {
				return nil, &UnavailableError{
					Source: models.SourceAlerts,
					Err:    fmt.Errorf("decode entity: %w", err),
				}
			}
			entities = append(entities, entity)
		}
	}
	return entities, nil
}
