// Package domainapi talks to the partner listings API on behalf of the
// stored credential.
package domainapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/auth"
	"github.com/vipul43/listing-sync/internal/models"
)

// ErrAuthenticationExhausted is returned when a call still fails with 401
// after one refresh, or when that refresh itself fails. Clock skew and a
// revoked refresh token both end up here.
var ErrAuthenticationExhausted = errors.New("authentication exhausted, please authenticate again")

// StatusError is a non-401 HTTP error from the partner API.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("partner API %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

// TokenProvider supplies bearer tokens and refreshes them on demand.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, bool)
	Refresh(ctx context.Context) (*models.Credential, error)
}

type Client struct {
	http   *resty.Client
	tokens TokenProvider
	logger *zap.Logger
}

func NewClient(baseURL string, tokens TokenProvider, logger *zap.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetHeader("Content-Type", "application/json"),
		tokens: tokens,
		logger: logger.With(zap.String("component", "domain_api")),
	}
}

// Get issues an authenticated GET and decodes the JSON body into out.
// A 401 triggers exactly one refresh and one retry.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	token, ok := c.tokens.AccessToken(ctx)
	if !ok {
		return auth.ErrNotAuthenticated
	}

	resp, err := c.get(ctx, path, token)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		c.logger.Warn("Access token rejected, refreshing", zap.String("path", path))

		cred, err := c.tokens.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrAuthenticationExhausted, err)
		}

		resp, err = c.get(ctx, path, cred.AccessToken)
		if err != nil {
			return err
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			c.logger.Error("Access token rejected after refresh", zap.String("path", path))
			return ErrAuthenticationExhausted
		}
	}

	if resp.IsError() {
		return &StatusError{Path: path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path, token string) (*resty.Response, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to call partner API %s: %w", path, err)
	}
	return resp, nil
}

// FetchListings returns one bounded page of an agency's listings. A listing
// that does not decode is logged and left out; the rest of the page is kept.
func (c *Client) FetchListings(ctx context.Context, agencyID int64, pageSize int) ([]models.Listing, error) {
	var page []json.RawMessage
	path := fmt.Sprintf("/agencies/%d/listings?pageSize=%d", agencyID, pageSize)
	if err := c.Get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("failed to fetch listings for agency %d: %w", agencyID, err)
	}

	listings := make([]models.Listing, 0, len(page))
	for i, raw := range page {
		var listing models.Listing
		if err := json.Unmarshal(raw, &listing); err != nil {
			c.logger.Warn("Skipping malformed listing",
				zap.Int64("agency_id", agencyID), zap.Int("index", i), zap.Error(err))
			continue
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// FetchAgencies returns the agencies the credential can see.
func (c *Client) FetchAgencies(ctx context.Context) ([]models.Agency, error) {
	var agencies []models.Agency
	if err := c.Get(ctx, "/agencies", &agencies); err != nil {
		return nil, fmt.Errorf("failed to fetch agencies: %w", err)
	}
	return agencies, nil
}
