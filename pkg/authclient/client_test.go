package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokens(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		rc, err := r.Cookie("refreshToken")
		if err != nil || rc.Value != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(RefreshResponse{AccessToken: "a2", RefreshToken: "r2", AccessExp: 10, RefreshExp: 20})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)

	resp, err := c.RefreshTokens(context.Background(), "r1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "a2", resp.AccessToken)
	assert.Equal(t, "r2", resp.RefreshToken)

	_, err = c.RefreshTokens(context.Background(), "stale", "a1")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestRefreshTokens_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL+"/").RefreshTokens(context.Background(), "r1", "a1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}
