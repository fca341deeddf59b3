// Package auth owns the OAuth2 credential lifecycle against the partner's
// identity provider: authorization URL, code exchange and refresh.
//
// Refresh is reactive. There is no expiry clock; a 401 from the partner API
// is the only expiry signal, so clock skew and a revoked refresh token look
// the same to callers.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/vipul43/listing-sync/internal/credential"
	"github.com/vipul43/listing-sync/internal/models"
)

// randomBytes is the entropy of each state and nonce value.
const randomBytes = 16

var (
	// ErrNotAuthenticated means no usable credential is stored.
	ErrNotAuthenticated = errors.New("access token is missing, please authenticate first")
	// ErrNoRefreshToken means a refresh cannot be attempted; the operator has
	// to go through the authorization code flow again.
	ErrNoRefreshToken = errors.New("no refresh token available, please authenticate first")
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)

// ProviderError is returned when the token endpoint rejects a grant.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s rejected by provider (status %d): %s", e.Op, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type Config struct {
	// AuthURL is the provider base; /connect/authorize and /connect/token are appended.
	AuthURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	// HTTPClient is used for token endpoint calls when set.
	HTTPClient *http.Client
}

// Manager is the only writer of the credential store. Exchanges and refreshes
// are serialized so a stale refresh token is never persisted over a newer one.
type Manager struct {
	oauth      *oauth2.Config
	store      credential.Store
	httpClient *http.Client
	logger     *zap.Logger

	mu         sync.Mutex
	refreshing atomic.Bool
	rejected   atomic.Bool
}

func NewManager(cfg Config, store credential.Store, logger *zap.Logger) *Manager {
	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL + "/connect/authorize",
				TokenURL:  cfg.AuthURL + "/connect/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:      store,
		httpClient: cfg.HTTPClient,
		logger:     logger.With(zap.String("component", "token_manager")),
	}
}

// BuildAuthorizationURL returns the provider login URL with a fresh state and nonce.
// It does not touch the stored credential.
func (m *Manager) BuildAuthorizationURL() (string, error) {
	state, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	authURL := m.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
	m.logger.Info("Constructed authorization URL", zap.String("endpoint", m.oauth.Endpoint.AuthURL))
	return authURL, nil
}

// ExchangeCode trades an authorization code for a credential and stores it.
// A missing refresh token in the response is stored as null.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*models.Credential, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Exchanging authorization code for tokens")
	token, err := m.oauth.Exchange(m.withClient(ctx), code)
	if err != nil {
		m.rejected.Store(true)
		perr := providerError("code exchange", err)
		m.logger.Error("Authorization code exchange failed",
			zap.Int("status", perr.StatusCode), zap.String("response", perr.Body), zap.Error(err))
		return nil, perr
	}

	cred := models.NewCredential(token.AccessToken, token.RefreshToken)
	if err := m.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	m.rejected.Store(false)

	m.logger.Info("Authorization code exchanged", zap.Bool("has_refresh_token", cred.HasRefreshToken()))
	return &cred, nil
}

// Refresh runs a refresh-token grant and stores the result. A rotated refresh
// token replaces the old one; if the provider omits it the old one is kept.
func (m *Manager) Refresh(ctx context.Context) (*models.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.store.Load(ctx)
	if !ok || !current.HasRefreshToken() {
		m.logger.Warn("No refresh token available, re-authentication required")
		return nil, ErrNoRefreshToken
	}
	oldRefresh := *current.RefreshToken

	m.refreshing.Store(true)
	defer m.refreshing.Store(false)

	m.logger.Info("Refreshing access token using refresh token")
	source := m.oauth.TokenSource(m.withClient(ctx), &oauth2.Token{RefreshToken: oldRefresh})
	token, err := source.Token()
	if err != nil {
		perr := providerError("token refresh", err)
		if perr.StatusCode != 0 {
			// the provider said no; a transport failure leaves the credential usable
			m.rejected.Store(true)
		}
		m.logger.Error("Token refresh failed",
			zap.Int("status", perr.StatusCode), zap.String("response", perr.Body), zap.Error(err))
		return nil, perr
	}

	newRefresh := oldRefresh
	if token.RefreshToken != "" && token.RefreshToken != oldRefresh {
		newRefresh = token.RefreshToken
		m.logger.Info("Provider rotated the refresh token")
	}

	cred := models.NewCredential(token.AccessToken, newRefresh)
	if err := m.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to store refreshed credential: %w", err)
	}
	m.rejected.Store(false)

	m.logger.Info("Tokens refreshed successfully")
	return &cred, nil
}

// AccessToken returns the stored access token without any network call.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	cred, ok := m.store.Load(ctx)
	if !ok {
		return "", false
	}
	return cred.AccessToken, true
}

// State reports where the credential lifecycle currently is.
func (m *Manager) State(ctx context.Context) State {
	if m.refreshing.Load() {
		return StateRefreshing
	}
	if m.rejected.Load() {
		return StateUnauthenticated
	}
	if _, ok := m.store.Load(ctx); !ok {
		return StateUnauthenticated
	}
	return StateAuthenticated
}

func (m *Manager) withClient(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func providerError(op string, err error) *ProviderError {
	perr := &ProviderError{Op: op, Err: err}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			perr.StatusCode = re.Response.StatusCode
		}
		perr.Body = string(re.Body)
	}
	return perr
}

// randomToken returns randomBytes of crypto/rand entropy, base64url encoded without padding.
func randomToken() (string, error) {
	b := make([]byte, randomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
