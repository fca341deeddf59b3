package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
)

type memoryStore struct {
	mu   sync.Mutex
	cred *models.Credential
}

func (s *memoryStore) Save(_ context.Context, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

func (s *memoryStore) Load(_ context.Context) (*models.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cred.HasAccessToken() {
		return nil, false
	}
	c := *s.cred
	return &c, true
}

type tokenServer struct {
	*httptest.Server
	hits  atomic.Int32
	forms chan url.Values
}

func newTokenServer(t *testing.T, status int, body string) *tokenServer {
	t.Helper()
	ts := &tokenServer{forms: make(chan url.Values, 10)}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		assert.Equal(t, "/connect/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		ts.forms <- r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestManager(baseURL string, store *memoryStore) *Manager {
	return NewManager(Config{
		AuthURL:      baseURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:3000/oauth/callback",
		Scopes:       []string{"openid", "offline_access"},
	}, store, zap.NewNop())
}

func TestBuildAuthorizationURL(t *testing.T) {
	m := newTestManager("https://auth.example.com/v1", &memoryStore{})

	first, err := m.BuildAuthorizationURL()
	require.NoError(t, err)
	second, err := m.BuildAuthorizationURL()
	require.NoError(t, err)

	u1, err := url.Parse(first)
	require.NoError(t, err)
	u2, err := url.Parse(second)
	require.NoError(t, err)

	assert.Equal(t, "/v1/connect/authorize", u1.Path)
	q1, q2 := u1.Query(), u2.Query()
	assert.Equal(t, "code", q1.Get("response_type"))
	assert.Equal(t, "client-id", q1.Get("client_id"))
	assert.Equal(t, "http://localhost:3000/oauth/callback", q1.Get("redirect_uri"))
	assert.Equal(t, "openid offline_access", q1.Get("scope"))

	assert.NotEqual(t, q1.Get("state"), q2.Get("state"))
	assert.NotEqual(t, q1.Get("nonce"), q2.Get("nonce"))

	for _, v := range []string{q1.Get("state"), q1.Get("nonce")} {
		raw, err := base64.RawURLEncoding.DecodeString(v)
		require.NoError(t, err)
		assert.Len(t, raw, randomBytes)
	}
}

func TestBuildAuthorizationURL_LeavesCredentialAlone(t *testing.T) {
	store := &memoryStore{}
	require.NoError(t, store.Save(context.Background(), models.NewCredential("a", "r")))
	m := newTestManager("https://auth.example.com/v1", store)

	_, err := m.BuildAuthorizationURL()
	require.NoError(t, err)

	assert.Equal(t, StateAuthenticated, m.State(context.Background()))
	assert.Equal(t, "a", store.cred.AccessToken)
}

func TestExchangeCode(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantRefresh *string
	}{
		{
			name:        "with refresh token",
			body:        `{"access_token":"A1","refresh_token":"R1","token_type":"Bearer"}`,
			wantRefresh: strPtr("R1"),
		},
		{
			name:        "refresh token omitted",
			body:        `{"access_token":"A1","token_type":"Bearer"}`,
			wantRefresh: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, http.StatusOK, tt.body)
			store := &memoryStore{}
			m := newTestManager(srv.URL, store)

			cred, err := m.ExchangeCode(context.Background(), "the-code")
			require.NoError(t, err)
			assert.Equal(t, "A1", cred.AccessToken)
			assert.Equal(t, tt.wantRefresh, cred.RefreshToken)
			assert.Equal(t, "A1", store.cred.AccessToken)
			assert.Equal(t, StateAuthenticated, m.State(context.Background()))

			form := <-srv.forms
			assert.Equal(t, "authorization_code", form.Get("grant_type"))
			assert.Equal(t, "the-code", form.Get("code"))
			assert.Equal(t, "client-id", form.Get("client_id"))
			assert.Equal(t, "client-secret", form.Get("client_secret"))
			assert.Equal(t, "http://localhost:3000/oauth/callback", form.Get("redirect_uri"))
		})
	}
}

func TestExchangeCode_ProviderRejects(t *testing.T) {
	srv := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	store := &memoryStore{}
	m := newTestManager(srv.URL, store)

	_, err := m.ExchangeCode(context.Background(), "bad-code")
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Contains(t, perr.Body, "invalid_grant")
	assert.Nil(t, store.cred)
	assert.Equal(t, StateUnauthenticated, m.State(context.Background()))
}

func TestExchangeCode_EmptyCode(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, `{}`)
	m := newTestManager(srv.URL, &memoryStore{})

	_, err := m.ExchangeCode(context.Background(), "")
	require.Error(t, err)
	assert.Zero(t, srv.hits.Load())
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	tests := []struct {
		name  string
		store *memoryStore
	}{
		{name: "no credential", store: &memoryStore{}},
		{name: "null refresh token", store: &memoryStore{cred: &models.Credential{AccessToken: "A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, http.StatusOK, `{}`)
			m := newTestManager(srv.URL, tt.store)

			_, err := m.Refresh(context.Background())
			assert.ErrorIs(t, err, ErrNoRefreshToken)
			assert.Zero(t, srv.hits.Load())
		})
	}
}

func TestRefresh_RefreshTokenHandling(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantAccess  string
		wantRefresh string
	}{
		{
			name:        "rotated",
			body:        `{"access_token":"A2","refresh_token":"R2","token_type":"Bearer"}`,
			wantAccess:  "A2",
			wantRefresh: "R2",
		},
		{
			name:        "kept when omitted",
			body:        `{"access_token":"A2","token_type":"Bearer"}`,
			wantAccess:  "A2",
			wantRefresh: "R1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, http.StatusOK, tt.body)
			store := &memoryStore{cred: &models.Credential{AccessToken: "A1", RefreshToken: strPtr("R1")}}
			m := newTestManager(srv.URL, store)

			cred, err := m.Refresh(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccess, cred.AccessToken)
			require.NotNil(t, store.cred.RefreshToken)
			assert.Equal(t, tt.wantRefresh, *store.cred.RefreshToken)

			form := <-srv.forms
			assert.Equal(t, "refresh_token", form.Get("grant_type"))
			assert.Equal(t, "R1", form.Get("refresh_token"))

			token, ok := m.AccessToken(context.Background())
			assert.True(t, ok)
			assert.Equal(t, "A2", token)
		})
	}
}

func TestRefresh_ProviderRejects(t *testing.T) {
	srv := newTokenServer(t, http.StatusBadRequest, `{"error":"invalid_grant"}`)
	store := &memoryStore{cred: &models.Credential{AccessToken: "A1", RefreshToken: strPtr("R1")}}
	m := newTestManager(srv.URL, store)

	_, err := m.Refresh(context.Background())

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Body, "invalid_grant")
	assert.Equal(t, "A1", store.cred.AccessToken, "stored credential must survive a rejected refresh")
	assert.Equal(t, StateUnauthenticated, m.State(context.Background()))
}

func TestRefresh_SerializesConcurrentCalls(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, `{"access_token":"A2","token_type":"Bearer"}`)
	store := &memoryStore{cred: &models.Credential{AccessToken: "A1", RefreshToken: strPtr("R1")}}
	m := newTestManager(srv.URL, store)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), srv.hits.Load())
	assert.Equal(t, "R1", *store.cred.RefreshToken)
}

func TestAccessToken_NoCredential(t *testing.T) {
	m := newTestManager("https://auth.example.com/v1", &memoryStore{})

	_, ok := m.AccessToken(context.Background())
	assert.False(t, ok)
	assert.Equal(t, StateUnauthenticated, m.State(context.Background()))
}

func strPtr(s string) *string { return &s }
