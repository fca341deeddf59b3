// Package handler exposes the operator HTTP surface: login, OAuth callback,
// manual sync triggers and a few read-only views.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/auth"
	"github.com/vipul43/listing-sync/internal/domainapi"
	"github.com/vipul43/listing-sync/internal/models"
	"github.com/vipul43/listing-sync/internal/service"
)

// Single-select fields whose options are listed at /airtable/options.
const (
	fieldMOS         = "MOS"
	fieldListingType = "Listing Type"
	fieldOffice      = "Office"
)

// Authenticator interface for dependency injection
type Authenticator interface {
	BuildAuthorizationURL() (string, error)
	ExchangeCode(ctx context.Context, code string) (*models.Credential, error)
	AccessToken(ctx context.Context) (string, bool)
	State(ctx context.Context) auth.State
}

// SyncRunner interface for dependency injection
type SyncRunner interface {
	RunFullSync(ctx context.Context, trigger models.SyncTrigger) (*models.SyncRun, error)
	Running() bool
}

// AgencyFetcher interface for dependency injection
type AgencyFetcher interface {
	FetchAgencies(ctx context.Context) ([]models.Agency, error)
}

// FieldOptionsProvider interface for dependency injection
type FieldOptionsProvider interface {
	FieldOptions(ctx context.Context, fields ...string) (map[string][]string, error)
}

// RecordCounter interface for dependency injection
type RecordCounter interface {
	Count(ctx context.Context) (int64, error)
}

type Handler struct {
	auth     Authenticator
	syncer   SyncRunner
	agencies AgencyFetcher
	options  FieldOptionsProvider
	records  RecordCounter
	logger   *zap.Logger
}

// New builds the handler. options may be nil when records are not mirrored
// into Airtable; /airtable/options is then not registered.
func New(authenticator Authenticator, syncer SyncRunner, agencies AgencyFetcher, options FieldOptionsProvider, logger *zap.Logger) *Handler {
	return &Handler{
		auth:     authenticator,
		syncer:   syncer,
		agencies: agencies,
		options:  options,
		logger:   logger.With(zap.String("component", "http")),
	}
}

// WithRecordCounter adds the mirrored record count to /status. Only the
// Postgres record backend can count cheaply.
func (h *Handler) WithRecordCounter(records RecordCounter) *Handler {
	h.records = records
	return h
}

func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger))

	r.GET("/", h.Index)
	r.GET("/status", h.Status)
	r.GET("/auth", h.Login)
	r.GET("/oauth/callback", h.Callback)
	if h.options != nil {
		r.GET("/airtable/options", h.FieldOptions)
	}

	protected := r.Group("/", RequireCredential(h.auth, h.logger))
	{
		protected.GET("/protected", h.Protected)
		protected.GET("/sync", h.Sync)
		protected.GET("/fetch-data", h.FetchData)
		protected.GET("/agencies", h.Agencies)
	}

	return r
}

// Index reports the credential lifecycle state, which turns unauthenticated
// after a rejected grant even while a token is still stored. The protected
// routes only check that a token is stored.
func (h *Handler) Index(c *gin.Context) {
	state := h.auth.State(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"service":       "listing-sync",
		"authenticated": state != auth.StateUnauthenticated,
		"authState":     state,
	})
}

func (h *Handler) Status(c *gin.Context) {
	body := gin.H{
		"authState":   h.auth.State(c.Request.Context()),
		"syncRunning": h.syncer.Running(),
	}
	if h.records != nil {
		count, err := h.records.Count(c.Request.Context())
		if err != nil {
			h.logger.Warn("Failed to count records", zap.Error(err))
		} else {
			body["recordCount"] = count
		}
	}
	c.JSON(http.StatusOK, body)
}

// Login redirects the operator to the provider's authorization page.
func (h *Handler) Login(c *gin.Context) {
	authURL, err := h.auth.BuildAuthorizationURL()
	if err != nil {
		h.logger.Error("Failed to build authorization URL", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to start authentication.")
		return
	}

	h.logger.Info("Redirecting to authorization page")
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		h.logger.Warn("Authorization code missing")
		c.String(http.StatusBadRequest, "Authorization code missing.")
		return
	}

	if _, err := h.auth.ExchangeCode(c.Request.Context(), code); err != nil {
		h.logger.Error("Token exchange failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to authenticate.")
		return
	}

	c.Redirect(http.StatusFound, "/?authenticated=true")
}

func (h *Handler) Protected(c *gin.Context) {
	c.String(http.StatusOK, "Protected content accessed!")
}

func (h *Handler) Sync(c *gin.Context) {
	run, ok := h.runSync(c, "Data sync failed.")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": run.Counts})
}

func (h *Handler) FetchData(c *gin.Context) {
	run, ok := h.runSync(c, "Failed to sync data to Airtable.")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          fmt.Sprintf("Data synced successfully to Airtable. Total records processed: %d", run.Total()),
		"recordsProcessed": run.Counts,
	})
}

// runSync writes the error response itself and reports false when the run
// did not complete. A started run is not tied to the client connection.
func (h *Handler) runSync(c *gin.Context, failureMessage string) (*models.SyncRun, bool) {
	run, err := h.syncer.RunFullSync(context.WithoutCancel(c.Request.Context()), models.TriggerManual)
	if errors.Is(err, service.ErrSyncInProgress) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "A sync run is already in progress."})
		return nil, false
	}
	if err != nil {
		h.logger.Error("Manual sync failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": failureMessage})
		return nil, false
	}
	return run, true
}

func (h *Handler) Agencies(c *gin.Context) {
	agencies, err := h.agencies.FetchAgencies(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch agencies", zap.Error(err))
		if errors.Is(err, domainapi.ErrAuthenticationExhausted) || errors.Is(err, auth.ErrNotAuthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized: Please authenticate first."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch agencies."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "agencies": agencies})
}

func (h *Handler) FieldOptions(c *gin.Context) {
	options, err := h.options.FieldOptions(c.Request.Context(), fieldMOS, fieldListingType, fieldOffice)
	if err != nil {
		h.logger.Error("Failed to fetch field options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch field options."})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mosOptions":      options[fieldMOS],
		"saleModeOptions": options[fieldListingType],
		"officeOptions":   options[fieldOffice],
	})
}
