// Package platform reads the entity graph from a remote device-management
// platform over its REST API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/johnwards/devicetree/internal/domain"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when the platform answers 404.
	ErrNotFound = errors.New("not found on platform")
	// ErrUnsupportedType is returned for entity types the platform client
	// cannot batch-fetch.
	ErrUnsupportedType = errors.New("unsupported entity type")
)

// StatusError is a non-2xx platform response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform returned %d", e.Status)
	}
	return fmt.Sprintf("platform returned %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New returns a client for the platform at baseURL, authenticating with a
// bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type entityID struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
}

func (e entityID) ref() domain.EntityRef {
	return domain.EntityRef{ID: e.ID, EntityType: domain.EntityType(e.EntityType)}
}

func toEntityID(r domain.EntityRef) entityID {
	return entityID{ID: r.ID, EntityType: string(r.EntityType)}
}

type entityJSON struct {
	ID          entityID `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Label       string   `json:"label"`
	CreatedTime int64    `json:"createdTime"`
}

func (e entityJSON) entity() domain.Entity {
	out := domain.Entity{ID: e.ID.ref(), Name: e.Name, Type: e.Type, Label: e.Label}
	if e.CreatedTime > 0 {
		out.CreatedAt = time.UnixMilli(e.CreatedTime).UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return out
}

type relationJSON struct {
	From      entityID `json:"from"`
	To        entityID `json:"to"`
	Type      string   `json:"type"`
	TypeGroup string   `json:"typeGroup"`
}

type pageJSON struct {
	Data    []entityJSON `json:"data"`
	HasNext bool         `json:"hasNext"`
}

// FetchEntities fetches assets or devices by id in one request.
func (c *Client) FetchEntities(ctx context.Context, entityType domain.EntityType, ids []string) ([]domain.Entity, error) {
	if len(ids) == 0 {
		return []domain.Entity{}, nil
	}
	var path, param string
	switch entityType {
	case domain.EntityTypeAsset:
		path, param = "/api/assets", "assetIds"
	case domain.EntityTypeDevice:
		path, param = "/api/devices", "deviceIds"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, entityType)
	}
	q := url.Values{param: {strings.Join(ids, ",")}}

	var raw []entityJSON
	if err := c.do(ctx, http.MethodGet, path, q, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch %s entities: %w", entityType, err)
	}
	out := make([]domain.Entity, len(raw))
	for i, e := range raw {
		out[i] = e.entity()
	}
	return out, nil
}

// FetchAttributes fetches the attributes of ref under scope.
func (c *Client) FetchAttributes(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope) ([]domain.Attribute, error) {
	path := fmt.Sprintf("/api/plugins/telemetry/%s/%s/values/attributes/%s",
		url.PathEscape(string(ref.EntityType)), url.PathEscape(ref.ID), url.PathEscape(string(scope)))
	var attrs []domain.Attribute
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &attrs); err != nil {
		return nil, fmt.Errorf("fetch %s attributes of %s: %w", scope, ref, err)
	}
	if attrs == nil {
		attrs = []domain.Attribute{}
	}
	return attrs, nil
}

// FetchRelationsFrom fetches the outgoing relations of from.
func (c *Client) FetchRelationsFrom(ctx context.Context, from domain.EntityRef) ([]domain.Relation, error) {
	q := url.Values{"fromId": {from.ID}, "fromType": {string(from.EntityType)}}
	var raw []relationJSON
	if err := c.do(ctx, http.MethodGet, "/api/relations", q, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch relations of %s: %w", from, err)
	}
	return relationsFromJSON(raw), nil
}

// FetchRelationsTo fetches the incoming relations of to.
func (c *Client) FetchRelationsTo(ctx context.Context, to domain.EntityRef) ([]domain.Relation, error) {
	q := url.Values{"toId": {to.ID}, "toType": {string(to.EntityType)}}
	var raw []relationJSON
	if err := c.do(ctx, http.MethodGet, "/api/relations", q, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch relations to %s: %w", to, err)
	}
	return relationsFromJSON(raw), nil
}

func relationsFromJSON(raw []relationJSON) []domain.Relation {
	out := make([]domain.Relation, len(raw))
	for i, r := range raw {
		out[i] = domain.Relation{From: r.From.ref(), To: r.To.ref(), Type: r.Type, TypeGroup: r.TypeGroup}
	}
	return out
}

// SaveRelation creates a relation.
func (c *Client) SaveRelation(ctx context.Context, rel domain.Relation) error {
	if rel.Type == "" {
		rel.Type = domain.RelationContains
	}
	if rel.TypeGroup == "" {
		rel.TypeGroup = domain.RelationGroupCommon
	}
	body := relationJSON{From: toEntityID(rel.From), To: toEntityID(rel.To), Type: rel.Type, TypeGroup: rel.TypeGroup}
	if err := c.do(ctx, http.MethodPost, "/api/relation", nil, body, nil); err != nil {
		return fmt.Errorf("save relation: %w", err)
	}
	return nil
}

// DeleteRelation removes a relation.
func (c *Client) DeleteRelation(ctx context.Context, from domain.EntityRef, relationType string, to domain.EntityRef) error {
	q := url.Values{
		"fromId":       {from.ID},
		"fromType":     {string(from.EntityType)},
		"relationType": {relationType},
		"toId":         {to.ID},
		"toType":       {string(to.EntityType)},
	}
	if err := c.do(ctx, http.MethodDelete, "/api/relation", q, nil, nil); err != nil {
		return fmt.Errorf("delete relation: %w", err)
	}
	return nil
}

// FindRoots pages through the tenant's assets of the given profile.
func (c *Client) FindRoots(ctx context.Context, profile string) ([]domain.EntityRef, error) {
	var refs []domain.EntityRef
	for page := 0; ; page++ {
		q := url.Values{
			"pageSize": {"100"},
			"page":     {strconv.Itoa(page)},
			"type":     {profile},
		}
		var p pageJSON
		if err := c.do(ctx, http.MethodGet, "/api/tenant/assets", q, nil, &p); err != nil {
			return nil, fmt.Errorf("list %s assets: %w", profile, err)
		}
		for _, e := range p.Data {
			refs = append(refs, e.ID.ref())
		}
		if !p.HasNext {
			return refs, nil
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(msg)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls "message" out of a JSON error body, falling back to the
// raw text.
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
