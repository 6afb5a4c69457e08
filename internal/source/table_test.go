package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testConnectionString(endpoint string) string {
	key := base64.StdEncoding.EncodeToString([]byte("secret-key"))
	return fmt.Sprintf("DefaultEndpointsProtocol=http;AccountName=testacct;AccountKey=%s;TableEndpoint=%s", key, endpoint)
}

func newTestTableClient(t *testing.T, endpoint string) *TableClient {
	t.Helper()
	client, err := NewTableClient(TableConfig{
		ConnectionString: testConnectionString(endpoint),
		TableName:        "SupportAlerts",
	})
	if err != nil {
		t.Fatalf("NewTableClient() error = %v", err)
	}
	return client
}

func writeEntityPage(w http.ResponseWriter, entities []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"value": entities})
}

func TestTableClient_FetchExhaustsPagination(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("Authorization") == "" {
			t.Error("request is not signed")
		}
		switch requests {
		case 1:
			if r.URL.Query().Get("NextPartitionKey") != "" {
				t.Error("first page should not carry a continuation token")
			}
			w.Header().Set("x-ms-continuation-NextPartitionKey", "p2")
			w.Header().Set("x-ms-continuation-NextRowKey", "r2")
			writeEntityPage(w, []map[string]any{{"Source": "A"}, {"Source": "B"}})
		case 2:
			if r.URL.Query().Get("NextPartitionKey") != "p2" || r.URL.Query().Get("NextRowKey") != "r2" {
				t.Errorf("continuation not propagated: %v", r.URL.Query())
			}
			writeEntityPage(w, []map[string]any{{"Source": "C"}})
		default:
			t.Errorf("unexpected request %d", requests)
		}
	}))
	defer srv.Close()

	entities, err := newTestTableClient(t, srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(entities) != 3 {
		t.Errorf("len(entities) = %d, want 3", len(entities))
	}
	if entities[2]["Source"] != "C" {
		t.Errorf("entities[2][Source] = %v, want C", entities[2]["Source"])
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestTableClient_FetchServerError(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestTableClient(t, srv.URL).Fetch(context.Background())
	if err == nil {
		t.Fatal("Fetch() error = nil, want UnavailableError")
	}
	if !IsUnavailable(err) {
		t.Errorf("IsUnavailable(%v) = false", err)
	}
	// The failed fetch must not be retried; refresh is the only retry.
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestTableClient_FetchMidPaginationFailure(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("x-ms-continuation-NextPartitionKey", "p2")
			writeEntityPage(w, []map[string]any{{"Source": "A"}})
			return
		}
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	// A partial page must never be returned as complete.
	entities, err := newTestTableClient(t, srv.URL).Fetch(context.Background())
	if err == nil {
		t.Fatalf("Fetch() = %d entities, want error", len(entities))
	}
	if !IsUnavailable(err) {
		t.Errorf("IsUnavailable(%v) = false", err)
	}
}

func TestTableClient_FetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestTableClient(t, srv.URL).Fetch(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("IsUnavailable(%v) = false", err)
	}
}

func TestNewTableClient_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  TableConfig
	}{
		{"empty connection string", TableConfig{TableName: "T"}},
		{"empty table name", TableConfig{ConnectionString: "AccountName=a;AccountKey=aGk="}},
		{"missing account name", TableConfig{ConnectionString: "AccountKey=aGk=", TableName: "T"}},
		{"missing account key", TableConfig{ConnectionString: "AccountName=a", TableName: "T"}},
		{"bad base64 key", TableConfig{ConnectionString: "AccountName=a;AccountKey=%%%", TableName: "T"}},
		{"malformed segment", TableConfig{ConnectionString: "NotAPair", TableName: "T"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTableClient(tt.cfg); err == nil {
				t.Error("NewTableClient() error = nil, want error")
			}
		})
	}
}
