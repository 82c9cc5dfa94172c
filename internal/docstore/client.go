// Package docstore is the HTTP client for the backend's blueprint
// document API. It is a thin JSON passthrough: documents round-trip as
// node trees with their type discriminators intact.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/schema"
)

// DefaultTimeout bounds individual document store calls.
const DefaultTimeout = 15 * time.Second

// Config configures the document store client.
type Config struct {
	// BaseURL is the backend API root, e.g. "http://robot-lab:8700".
	BaseURL string
	// Token, when set, is sent as a bearer token.
	Token string
	// Timeout bounds each request; DefaultTimeout when zero.
	Timeout time.Duration
}

// Client talks to the remote blueprint document store.
type Client struct {
	base   *url.URL
	token  string
	client *http.Client
	log    pslog.Logger
}

// New constructs a document store client.
func New(cfg Config, logger pslog.Logger) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if trimmed == "" {
		return nil, schema.ErrStoreUnavailable
	}
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", base.Scheme)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger != nil {
		logger = logger.With("docstore", base.Host)
	}
	return &Client{
		base:   base,
		token:  strings.TrimSpace(cfg.Token),
		client: &http.Client{Timeout: timeout},
		log:    logger,
	}, nil
}

// List fetches all saved blueprint document summaries.
func (c *Client) List(ctx context.Context) ([]schema.DocumentSummary, error) {
	var out struct {
		Blueprints []schema.DocumentSummary `json:"blueprints"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/blueprints", nil, &out); err != nil {
		return nil, err
	}
	return out.Blueprints, nil
}

// Get fetches one document with its tree.
func (c *Client) Get(ctx context.Context, id schema.BlueprintID) (schema.BlueprintDocument, error) {
	var doc schema.BlueprintDocument
	if err := c.do(ctx, http.MethodGet, "/api/v1/blueprints/"+url.PathEscape(string(id)), nil, &doc); err != nil {
		return schema.BlueprintDocument{}, err
	}
	return doc, nil
}

// Create persists a new named document.
func (c *Client) Create(ctx context.Context, name schema.DocumentName, root schema.Node) (schema.BlueprintDocument, error) {
	body, err := encodeDocumentBody(&name, root)
	if err != nil {
		return schema.BlueprintDocument{}, err
	}
	var doc schema.BlueprintDocument
	if err := c.do(ctx, http.MethodPost, "/api/v1/blueprints", body, &doc); err != nil {
		return schema.BlueprintDocument{}, err
	}
	return doc, nil
}

// Update patches an existing document's name and/or tree.
func (c *Client) Update(ctx context.Context, id schema.BlueprintID, update schema.DocumentUpdate) (schema.BlueprintDocument, error) {
	body, err := encodeDocumentBody(update.Name, update.Root)
	if err != nil {
		return schema.BlueprintDocument{}, err
	}
	var doc schema.BlueprintDocument
	if err := c.do(ctx, http.MethodPatch, "/api/v1/blueprints/"+url.PathEscape(string(id)), body, &doc); err != nil {
		return schema.BlueprintDocument{}, err
	}
	return doc, nil
}

// Delete removes a document. The server reports how many other
// sessions it rebound to a replacement.
func (c *Client) Delete(ctx context.Context, id schema.BlueprintID) (schema.DeleteOutcome, error) {
	var out struct {
		ReboundSessionCount int `json:"rebound_session_count"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/v1/blueprints/"+url.PathEscape(string(id)), nil, &out); err != nil {
		return schema.DeleteOutcome{}, err
	}
	return schema.DeleteOutcome{ReboundSessions: out.ReboundSessionCount}, nil
}

// ResolveSession asks the server which document the session uses,
// creating a default when none exists.
func (c *Client) ResolveSession(ctx context.Context, ref schema.SessionRef) (schema.ResolvedDocument, error) {
	var out struct {
		Blueprint  schema.BlueprintDocument `json:"blueprint"`
		ResolvedBy schema.ResolveReason     `json:"resolved_by"`
	}
	if err := c.do(ctx, http.MethodPost, sessionPath(ref)+"/resolve", nil, &out); err != nil {
		return schema.ResolvedDocument{}, err
	}
	return schema.ResolvedDocument{Document: out.Blueprint, Reason: out.ResolvedBy}, nil
}

// BindSession binds the session to an explicit document.
func (c *Client) BindSession(ctx context.Context, ref schema.SessionRef, id schema.BlueprintID) (schema.BlueprintDocument, error) {
	body, err := json.Marshal(struct {
		BlueprintID schema.BlueprintID `json:"blueprintId"`
	}{BlueprintID: id})
	if err != nil {
		return schema.BlueprintDocument{}, err
	}
	var out struct {
		Blueprint schema.BlueprintDocument `json:"blueprint"`
	}
	if err := c.do(ctx, http.MethodPut, sessionPath(ref), body, &out); err != nil {
		return schema.BlueprintDocument{}, err
	}
	return out.Blueprint, nil
}

func sessionPath(ref schema.SessionRef) string {
	return "/api/v1/sessions/" + url.PathEscape(string(ref.Kind)) + "/" + url.PathEscape(string(ref.ID)) + "/blueprint"
}

func encodeDocumentBody(name *schema.DocumentName, root schema.Node) ([]byte, error) {
	payload := make(map[string]json.RawMessage, 2)
	if name != nil {
		data, err := json.Marshal(*name)
		if err != nil {
			return nil, err
		}
		payload["name"] = data
	}
	if root != nil {
		data, err := schema.MarshalNode(root)
		if err != nil {
			return nil, err
		}
		payload["blueprint"] = data
	}
	return json.Marshal(payload)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	target := *c.base
	target.Path = strings.TrimRight(target.Path, "/") + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.log != nil {
		c.log.Trace("docstore request", "method", method, "path", path)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if c.log != nil {
			c.log.Warn("docstore request failed", "method", method, "path", path, "err", err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", schema.ErrDocumentNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("docstore %s %s: %s", method, path, statusMessage(resp.StatusCode, data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("docstore %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func statusMessage(status int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Sprintf("%s (%d)", payload.Error, status)
	}
	return http.StatusText(status)
}
