package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth0Service_GetUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/userinfo", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"sub":   "auth0|staff1",
				"email": "chef@luigis.example",
				"name":  "Chef Luigi",
			})
		case "Bearer no-sub":
			json.NewEncoder(w).Encode(map[string]string{"email": "x@example.com"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_token"}`))
		}
	}))
	defer server.Close()

	svc := NewAuth0Service(server.URL)

	t.Run("Valid token", func(t *testing.T) {
		info, err := svc.GetUserInfo(context.Background(), "good-token")
		require.NoError(t, err)
		assert.Equal(t, "auth0|staff1", info.Sub)
		assert.Equal(t, "chef@luigis.example", info.Email)
		assert.Equal(t, "Chef Luigi", info.Name)
	})

	t.Run("Rejected token", func(t *testing.T) {
		_, err := svc.GetUserInfo(context.Background(), "bad-token")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("Missing subject", func(t *testing.T) {
		_, err := svc.GetUserInfo(context.Background(), "no-sub")
		assert.Error(t, err)
	})

	t.Run("Canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.GetUserInfo(ctx, "good-token")
		assert.Error(t, err)
	})
}
