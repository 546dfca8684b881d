package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flowRecordJSON(id, definitionID, apiName string, version int, status string) map[string]any {
	return map[string]any{
		"Id":            id,
		"MasterLabel":   apiName + " label",
		"VersionNumber": version,
		"Status":        status,
		"DefinitionId":  definitionID,
		"Definition": map[string]any{
			"DeveloperName": apiName,
			"MasterLabel":   apiName + " label",
		},
	}
}

func queryServer(t *testing.T, records []map[string]any, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = r.URL.Query().Get("q")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"records": records})
	}))
}

func TestOldVersions(t *testing.T) {
	t.Run("inactive non-latest versions are selected, latest is not", func(t *testing.T) {
		// Query-order records: Order_Flow v3 (latest), v2, v1.
		server := queryServer(t, []map[string]any{
			flowRecordJSON("301-3", "300-A", "Order_Flow", 3, "Obsolete"),
			flowRecordJSON("301-2", "300-A", "Order_Flow", 2, "Obsolete"),
			flowRecordJSON("301-1", "300-A", "Order_Flow", 1, "Draft"),
		}, nil)
		defer server.Close()

		versions, err := newTestClient(t, server).Flows().OldVersions(context.Background())
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "301-2", versions[0].ID)
		assert.Equal(t, "301-1", versions[1].ID)
	})

	t.Run("active versions are never selected even if superseded", func(t *testing.T) {
		server := queryServer(t, []map[string]any{
			flowRecordJSON("301-5", "300-A", "Order_Flow", 5, "Obsolete"),
			flowRecordJSON("301-4", "300-A", "Order_Flow", 4, "Active"),
			flowRecordJSON("301-3", "300-A", "Order_Flow", 3, "Obsolete"),
		}, nil)
		defer server.Close()

		versions, err := newTestClient(t, server).Flows().OldVersions(context.Background())
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Equal(t, "301-3", versions[0].ID)
	})

	t.Run("latest is tracked per definition", func(t *testing.T) {
		server := queryServer(t, []map[string]any{
			flowRecordJSON("301-2", "300-A", "Order_Flow", 2, "Obsolete"),
			flowRecordJSON("301-1", "300-A", "Order_Flow", 1, "Obsolete"),
			flowRecordJSON("302-7", "300-B", "Case_Flow", 7, "Obsolete"),
			flowRecordJSON("302-6", "300-B", "Case_Flow", 6, "Obsolete"),
		}, nil)
		defer server.Close()

		versions, err := newTestClient(t, server).Flows().OldVersions(context.Background())
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "301-1", versions[0].ID)
		assert.Equal(t, "302-6", versions[1].ID)
	})

	t.Run("query excludes active versions server-side", func(t *testing.T) {
		var soql string
		server := queryServer(t, nil, &soql)
		defer server.Close()

		_, err := newTestClient(t, server).Flows().OldVersions(context.Background())
		require.NoError(t, err)
		assert.Contains(t, soql, "Status != 'Active'")
		assert.Contains(t, soql, "ORDER BY Definition.DeveloperName, VersionNumber DESC")
	})

	t.Run("empty result is valid", func(t *testing.T) {
		server := queryServer(t, nil, nil)
		defer server.Close()

		versions, err := newTestClient(t, server).Flows().OldVersions(context.Background())
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("resolution is idempotent and order-stable", func(t *testing.T) {
		records := []map[string]any{
			flowRecordJSON("301-3", "300-A", "Order_Flow", 3, "Obsolete"),
			flowRecordJSON("301-2", "300-A", "Order_Flow", 2, "Obsolete"),
			flowRecordJSON("301-1", "300-A", "Order_Flow", 1, "Obsolete"),
		}
		server := queryServer(t, records, nil)
		defer server.Close()

		client := newTestClient(t, server)
		first, err := client.Flows().OldVersions(context.Background())
		require.NoError(t, err)
		second, err := client.Flows().OldVersions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("malformed query is a resolution error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode([]map[string]string{
				{"message": "unexpected token", "errorCode": "MALFORMED_QUERY"},
			})
		}))
		defer server.Close()

		_, err := newTestClient(t, server).Flows().OldVersions(context.Background())
		var queryErr *QueryError
		require.ErrorAs(t, err, &queryErr)
	})
}

func TestOldVersionsByName(t *testing.T) {
	t.Run("restricts the query to the given names", func(t *testing.T) {
		var soql string
		server := queryServer(t, []map[string]any{
			flowRecordJSON("301-2", "300-A", "Order_Flow", 2, "Obsolete"),
			flowRecordJSON("301-1", "300-A", "Order_Flow", 1, "Obsolete"),
		}, &soql)
		defer server.Close()

		versions, err := newTestClient(t, server).Flows().OldVersionsByName(context.Background(), []string{"Order_Flow", "Case_Flow"})
		require.NoError(t, err)
		require.Len(t, versions, 1)
		assert.Contains(t, soql, "Definition.DeveloperName = 'Order_Flow'")
		assert.Contains(t, soql, "Definition.DeveloperName = 'Case_Flow'")
	})

	t.Run("unmatched names yield zero candidates without error", func(t *testing.T) {
		server := queryServer(t, nil, nil)
		defer server.Close()

		versions, err := newTestClient(t, server).Flows().OldVersionsByName(context.Background(), []string{"No_Such_Flow"})
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("no names means no query", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		versions, err := newTestClient(t, server).Flows().OldVersionsByName(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, versions)
		assert.False(t, called)
	})

	t.Run("names are SOQL-escaped", func(t *testing.T) {
		var soql string
		server := queryServer(t, nil, &soql)
		defer server.Close()

		_, err := newTestClient(t, server).Flows().OldVersionsByName(context.Background(), []string{"O'Brien_Flow"})
		require.NoError(t, err)
		assert.Contains(t, soql, `O\'Brien_Flow`)
	})
}

func makeVersions(n int) []FlowVersion {
	versions := make([]FlowVersion, 0, n)
	for i := 0; i < n; i++ {
		versions = append(versions, FlowVersion{
			ID:            fmt.Sprintf("301%06d", i),
			DefinitionID:  "300-A",
			APIName:       "Order_Flow",
			VersionNumber: i + 1,
			Status:        "Obsolete",
		})
	}
	return versions
}

// compositeServer answers each delete sub-request via answer, which maps the
// flow version ID (parsed from the sub-request URL) to an HTTP status.
func compositeServer(t *testing.T, calls *[][]compositeSubRequest, answer func(id string) int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var request compositeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.False(t, request.AllOrNone)
		assert.LessOrEqual(t, len(request.CompositeRequest), CompositeBatchLimit)
		if calls != nil {
			*calls = append(*calls, request.CompositeRequest)
		}
		var response compositeResponse
		for _, sub := range request.CompositeRequest {
			parts := strings.Split(sub.URL, "/")
			id := parts[len(parts)-1]
			status := http.StatusNoContent
			if answer != nil {
				status = answer(id)
			}
			subResp := compositeSubResponse{ReferenceID: sub.ReferenceID, HTTPStatusCode: status}
			if status != http.StatusNoContent {
				subResp.Body, _ = json.Marshal([]map[string]string{
					{"message": "flow version is in use", "errorCode": "DELETE_FAILED"},
				})
			}
			response.CompositeResponse = append(response.CompositeResponse, subResp)
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
}

func TestDeleteVersions(t *testing.T) {
	t.Run("produces one result per candidate across batches", func(t *testing.T) {
		var calls [][]compositeSubRequest
		server := compositeServer(t, &calls, nil)
		defer server.Close()

		versions := makeVersions(60)
		results, err := newTestClient(t, server).Flows().DeleteVersions(context.Background(), versions)
		require.NoError(t, err)

		require.Len(t, results, 60)
		require.Len(t, calls, 3) // ceil(60/25)
		assert.Len(t, calls[0], 25)
		assert.Len(t, calls[1], 25)
		assert.Len(t, calls[2], 10)
		for i, result := range results {
			assert.Equal(t, versions[i].ID, result.Version.ID, "input order must be preserved")
			assert.True(t, result.Deleted())
		}
	})

	t.Run("single partial batch", func(t *testing.T) {
		var calls [][]compositeSubRequest
		server := compositeServer(t, &calls, nil)
		defer server.Close()

		results, err := newTestClient(t, server).Flows().DeleteVersions(context.Background(), makeVersions(3))
		require.NoError(t, err)
		assert.Len(t, results, 3)
		require.Len(t, calls, 1)
		assert.Len(t, calls[0], 3)
	})

	t.Run("no candidates means no calls", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		results, err := newTestClient(t, server).Flows().DeleteVersions(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.False(t, called)
	})

	t.Run("mixed per-item outcomes within one batch", func(t *testing.T) {
		server := compositeServer(t, nil, func(id string) int {
			if id == "301000001" {
				return http.StatusBadRequest
			}
			return http.StatusNoContent
		})
		defer server.Close()

		results, err := newTestClient(t, server).Flows().DeleteVersions(context.Background(), makeVersions(3))
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.True(t, results[0].Deleted())
		assert.False(t, results[1].Deleted())
		require.Error(t, results[1].Err)
		assert.Contains(t, results[1].Err.Error(), "DELETE_FAILED")
		assert.Equal(t, http.StatusBadRequest, results[1].StatusCode)
		assert.True(t, results[2].Deleted())
	})

	t.Run("whole batch failure marks only its candidates failed", func(t *testing.T) {
		var batchCount int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			batchCount++
			if batchCount == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode([]map[string]string{
					{"message": "server unavailable", "errorCode": "UNKNOWN_EXCEPTION"},
				})
				return
			}
			var request compositeRequest
			_ = json.NewDecoder(r.Body).Decode(&request)
			var response compositeResponse
			for _, sub := range request.CompositeRequest {
				response.CompositeResponse = append(response.CompositeResponse, compositeSubResponse{
					ReferenceID: sub.ReferenceID, HTTPStatusCode: http.StatusNoContent,
				})
			}
			_ = json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		versions := makeVersions(30)
		results, err := newTestClient(t, server).Flows().DeleteVersions(context.Background(), versions)
		require.NoError(t, err)
		require.Len(t, results, 30)

		for i := 0; i < 25; i++ {
			require.Error(t, results[i].Err, "batch 1 candidate %d", i)
			var batchErr *BatchError
			require.ErrorAs(t, results[i].Err, &batchErr)
			assert.Equal(t, 1, batchErr.Batch)
		}
		for i := 25; i < 30; i++ {
			assert.True(t, results[i].Deleted(), "batch 2 candidate %d", i)
		}
	})

	t.Run("context cancellation stops remaining batches", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		server := compositeServer(t, nil, nil)
		defer server.Close()

		results, err := newTestClient(t, server).Flows().DeleteVersions(ctx, makeVersions(5))
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, results)
	})
}

func TestFilterOldVersions(t *testing.T) {
	t.Run("single version per definition is kept as latest", func(t *testing.T) {
		candidates := filterOldVersions([]FlowVersion{
			{ID: "1", DefinitionID: "A", VersionNumber: 1, Status: "Draft"},
		})
		assert.Empty(t, candidates)
	})

	t.Run("nil input", func(t *testing.T) {
		assert.Empty(t, filterOldVersions(nil))
	})
}
