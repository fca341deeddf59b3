package domainapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/auth"
	"github.com/vipul43/listing-sync/internal/models"
)

// mockTokenProvider is a mock implementation of TokenProvider
type mockTokenProvider struct {
	accessTokenFunc func(ctx context.Context) (string, bool)
	refreshFunc     func(ctx context.Context) (*models.Credential, error)
	refreshCalls    atomic.Int32
}

func (m *mockTokenProvider) AccessToken(ctx context.Context) (string, bool) {
	if m.accessTokenFunc != nil {
		return m.accessTokenFunc(ctx)
	}
	return "token-1", true
}

func (m *mockTokenProvider) Refresh(ctx context.Context) (*models.Credential, error) {
	m.refreshCalls.Add(1)
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx)
	}
	cred := models.NewCredential("token-2", "refresh")
	return &cred, nil
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClient_Get_AttachesBearerToken(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":1,"name":"LNS"}]`))
	})
	tokens := &mockTokenProvider{}
	client := NewClient(srv.URL, tokens, zap.NewNop())

	agencies, err := client.FetchAgencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Agency{{ID: 1, Name: "LNS"}}, agencies)
	assert.Equal(t, int32(1), hits.Load())
	assert.Zero(t, tokens.refreshCalls.Load())
}

func TestClient_Get_RefreshesOnceOn401(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	tokens := &mockTokenProvider{}
	client := NewClient(srv.URL, tokens, zap.NewNop())

	_, err := client.FetchAgencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, int32(1), tokens.refreshCalls.Load())
}

func TestClient_Get_AlwaysUnauthorized(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	tokens := &mockTokenProvider{}
	client := NewClient(srv.URL, tokens, zap.NewNop())

	err := client.Get(context.Background(), "/agencies", nil)
	assert.ErrorIs(t, err, ErrAuthenticationExhausted)
	assert.Equal(t, int32(1), tokens.refreshCalls.Load(), "exactly one refresh per call")
	assert.Equal(t, int32(2), hits.Load(), "original request plus exactly one retry")
}

func TestClient_Get_RefreshFails(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	tokens := &mockTokenProvider{
		refreshFunc: func(ctx context.Context) (*models.Credential, error) {
			return nil, auth.ErrNoRefreshToken
		},
	}
	client := NewClient(srv.URL, tokens, zap.NewNop())

	err := client.Get(context.Background(), "/agencies", nil)
	assert.ErrorIs(t, err, ErrAuthenticationExhausted)
	assert.ErrorIs(t, err, auth.ErrNoRefreshToken)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_Get_NotAuthenticated(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	tokens := &mockTokenProvider{
		accessTokenFunc: func(ctx context.Context) (string, bool) { return "", false },
	}
	client := NewClient(srv.URL, tokens, zap.NewNop())

	err := client.Get(context.Background(), "/agencies", nil)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Zero(t, hits.Load())
}

func TestClient_Get_StatusErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "forbidden", status: http.StatusForbidden},
		{name: "rate limited", status: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			})
			tokens := &mockTokenProvider{}
			client := NewClient(srv.URL, tokens, zap.NewNop())

			err := client.Get(context.Background(), "/agencies", nil)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Contains(t, statusErr.Body, "nope")
			assert.Equal(t, int32(1), hits.Load())
			assert.Zero(t, tokens.refreshCalls.Load())
		})
	}
}

func TestClient_FetchListings(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agencies/2842/listings", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`[{"id":99,"bedrooms":3,"addressParts":{"displayAddress":"1 Main St","suburb":"Newtown"},"priceDetails":{"displayPrice":"Auction"},"seoUrl":"https://example.com/99"}]`))
	})
	client := NewClient(srv.URL, &mockTokenProvider{}, zap.NewNop())

	listings, err := client.FetchListings(context.Background(), 2842, 1000)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, int64(99), listings[0].ID)
	assert.Equal(t, float64(3), listings[0].Bedrooms)
	assert.Equal(t, "Newtown", listings[0].AddressParts.Suburb)
	assert.Equal(t, "Auction", listings[0].PriceDetails.DisplayPrice)
	assert.Equal(t, "https://example.com/99", listings[0].SeoURL)
}

func TestClient_FetchListings_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	client := NewClient(srv.URL, &mockTokenProvider{}, zap.NewNop())

	_, err := client.FetchListings(context.Background(), 2842, 1000)
	assert.Error(t, err)
}

func TestClient_FetchListings_SkipsMalformedListing(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"bedrooms":3},{"id":2,"bedrooms":"3"},{"id":3}]`))
	})
	client := NewClient(srv.URL, &mockTokenProvider{}, zap.NewNop())

	listings, err := client.FetchListings(context.Background(), 2842, 1000)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, int64(1), listings[0].ID)
	assert.Equal(t, float64(3), listings[0].Bedrooms)
	assert.Equal(t, int64(3), listings[1].ID)
}
