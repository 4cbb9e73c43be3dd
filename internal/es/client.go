// Package es is the index backend boundary: it serializes query trees to the
// Elasticsearch HTTP API and parses responses. Index lifecycle administration
// is out of scope; only read-path calls live here.
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

// Config holds connection parameters for the index backend.
type Config struct {
	Addresses      []string
	Username       string
	Password       string
	APIKey         string
	MaxRetries     int
	DefaultTimeout time.Duration
}

// Client wraps the official Elasticsearch client for the read path.
type Client struct {
	es             *elasticsearch.Client
	defaultTimeout time.Duration
}

// NewClient creates an index backend client.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 5 * time.Second
	}

	cli, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		APIKey:        cfg.APIKey,
		MaxRetries:    cfg.MaxRetries,
		RetryOnStatus: []int{502, 503, 504},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	return &Client{es: cli, defaultTimeout: cfg.DefaultTimeout}, nil
}

// Ping checks backend availability.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return &Error{Op: OpPing, Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &Error{Op: OpPing, Err: fmt.Errorf("status %s", res.Status())}
	}
	return nil
}

// Search executes one query tree against an index. The context deadline
// bounds the call; when none is set the client default applies.
func (c *Client) Search(ctx context.Context, index string, body query.Tree) (*Response, error) {
	if index == "" {
		return nil, &Error{Op: OpSearch, Err: fmt.Errorf("index is required")}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Op: OpSearch, Err: fmt.Errorf("marshal body: %w", err)}
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(raw)),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, &Error{Op: OpSearch, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, &Error{Op: OpSearch, Err: fmt.Errorf("status %s: %s", res.Status(), msg)}
	}

	var parsed Response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &Error{Op: OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &parsed, nil
}

// Msearch executes several query trees against one index in a single
// round-trip. Responses come back in request order; a per-query backend
// error surfaces as a nil entry with its error in errs.
func (c *Client) Msearch(ctx context.Context, index string, bodies []query.Tree) ([]*Response, []error, error) {
	if len(bodies) == 0 {
		return nil, nil, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
	}

	var buf bytes.Buffer
	for _, body := range bodies {
		buf.WriteString("{}\n")
		line, err := json.Marshal(body)
		if err != nil {
			return nil, nil, &Error{Op: OpMsearch, Err: fmt.Errorf("marshal body: %w", err)}
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	res, err := c.es.Msearch(
		&buf,
		c.es.Msearch.WithContext(ctx),
		c.es.Msearch.WithIndex(index),
	)
	if err != nil {
		return nil, nil, &Error{Op: OpMsearch, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, nil, &Error{Op: OpMsearch, Err: fmt.Errorf("status %s: %s", res.Status(), msg)}
	}

	var wrapper struct {
		Responses []json.RawMessage `json:"responses"`
	}
	if err := json.NewDecoder(res.Body).Decode(&wrapper); err != nil {
		return nil, nil, &Error{Op: OpMsearch, Err: fmt.Errorf("decode response: %w", err)}
	}

	responses := make([]*Response, len(wrapper.Responses))
	errs := make([]error, len(wrapper.Responses))
	for i, raw := range wrapper.Responses {
		var envelope struct {
			Error *json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			errs[i] = &Error{Op: OpMsearch, Err: err}
			continue
		}
		if envelope.Error != nil {
			errs[i] = &Error{Op: OpMsearch, Err: fmt.Errorf("sub-query failed: %s", *envelope.Error)}
			continue
		}
		var parsed Response
		if err := json.Unmarshal(raw, &parsed); err != nil {
			errs[i] = &Error{Op: OpMsearch, Err: err}
			continue
		}
		responses[i] = &parsed
	}
	return responses, errs, nil
}
