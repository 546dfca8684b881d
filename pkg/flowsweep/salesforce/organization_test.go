package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationDescribe(t *testing.T) {
	t.Run("classifies a sandbox", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Query().Get("q"), "IsSandbox")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{
					{"Id": "00D000000000001", "Name": "Acme QA", "IsSandbox": true},
				},
			})
		}))
		defer server.Close()

		profile, err := newTestClient(t, server).Organization().Describe(context.Background())
		require.NoError(t, err)
		assert.True(t, profile.IsSandbox)
		assert.Equal(t, "Acme QA", profile.Name)
		assert.Equal(t, "00D000000000001", profile.ID)
	})

	t.Run("classifies production", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{
					{"Id": "00D000000000002", "Name": "Acme", "IsSandbox": false},
				},
			})
		}))
		defer server.Close()

		profile, err := newTestClient(t, server).Organization().Describe(context.Background())
		require.NoError(t, err)
		assert.False(t, profile.IsSandbox)
	})

	t.Run("empty result is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"records": []any{}})
		}))
		defer server.Close()

		_, err := newTestClient(t, server).Organization().Describe(context.Background())
		var queryErr *QueryError
		require.ErrorAs(t, err, &queryErr)
	})

	t.Run("permission failure surfaces as query error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode([]map[string]string{
				{"message": "insufficient access", "errorCode": "INSUFFICIENT_ACCESS"},
			})
		}))
		defer server.Close()

		_, err := newTestClient(t, server).Organization().Describe(context.Background())
		var queryErr *QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Contains(t, err.Error(), "insufficient access")
	})
}
