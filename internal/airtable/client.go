// Package airtable is a small client for the hosted tabular store the
// listings are mirrored into.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/vipul43/listing-sync/internal/models"
)

// APIError is a non-2xx response from the store.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

type Config struct {
	APIURL string
	APIKey string
	BaseID string
	Table  string
	// KeyField is the field holding the record's stable identifier.
	KeyField string
}

type Client struct {
	http     *resty.Client
	table    string
	keyField string
	logger   *zap.Logger
}

type record struct {
	ID     string                 `json:"id,omitempty"`
	Fields map[string]interface{} `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// Create and update both ask the store to coerce values, so a select option
// created on the first sync is accepted on later updates.
type createRequest struct {
	Records  []record `json:"records"`
	Typecast bool     `json:"typecast"`
}

type updateRequest struct {
	Fields   map[string]interface{} `json:"fields"`
	Typecast bool                   `json:"typecast"`
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	keyField := cfg.KeyField
	if keyField == "" {
		keyField = models.FieldListingID
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.APIURL, "/")+"/"+url.PathEscape(cfg.BaseID)).
			SetAuthToken(cfg.APIKey).
			SetHeader("Content-Type", "application/json"),
		table:    cfg.Table,
		keyField: keyField,
		logger:   logger.With(zap.String("component", "airtable")),
	}
}

// FindByKey looks up the record whose key field equals key.
func (c *Client) FindByKey(ctx context.Context, key string) (string, bool, error) {
	formula := fmt.Sprintf(`{%s} = "%s"`, c.keyField, strings.ReplaceAll(key, `"`, `\"`))

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("table", c.table).
		SetQueryParam("filterByFormula", formula).
		SetQueryParam("maxRecords", "1").
		Get("/{table}")
	if err != nil {
		return "", false, fmt.Errorf("failed to query airtable: %w", err)
	}
	if resp.IsError() {
		return "", false, &APIError{Op: "find", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var list listResponse
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return "", false, fmt.Errorf("failed to decode airtable records: %w", err)
	}
	if len(list.Records) == 0 {
		return "", false, nil
	}
	return list.Records[0].ID, true, nil
}

func (c *Client) Create(ctx context.Context, key string, fields models.Fields) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("table", c.table).
		SetBody(createRequest{Records: []record{{Fields: fields}}, Typecast: true}).
		Post("/{table}")
	if err != nil {
		return fmt.Errorf("failed to create airtable record: %w", err)
	}
	if resp.IsError() {
		return &APIError{Op: "create", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	c.logger.Info("Created record", zap.String("key", key))
	return nil
}

// Update patches the given fields of an existing record; fields not
// present are left untouched.
func (c *Client) Update(ctx context.Context, id string, fields models.Fields) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"table": c.table, "id": id}).
		SetBody(updateRequest{Fields: fields, Typecast: true}).
		Patch("/{table}/{id}")
	if err != nil {
		return fmt.Errorf("failed to update airtable record: %w", err)
	}
	if resp.IsError() {
		return &APIError{Op: "update", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	c.logger.Info("Updated record", zap.String("record_id", id))
	return nil
}

// FieldOptions returns the distinct non-empty values of each named field
// across the first page of records, in first-seen order.
func (c *Client) FieldOptions(ctx context.Context, fields ...string) (map[string][]string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("table", c.table).
		Get("/{table}")
	if err != nil {
		return nil, fmt.Errorf("failed to list airtable records: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Op: "list", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var list listResponse
	if err := json.Unmarshal(resp.Body(), &list); err != nil {
		return nil, fmt.Errorf("failed to decode airtable records: %w", err)
	}

	options := make(map[string][]string, len(fields))
	for _, field := range fields {
		seen := make(map[string]bool)
		values := []string{}
		for _, rec := range list.Records {
			v, ok := rec.Fields[field].(string)
			if !ok || v == "" || seen[v] {
				continue
			}
			seen[v] = true
			values = append(values, v)
		}
		options[field] = values
	}
	return options, nil
}
