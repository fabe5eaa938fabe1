// Package httpstore talks to a tap board server over GET/PUT /api/state.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tapboard/internal/inventory"
)

const statePath = "/api/state"

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Code   int
	Msg    string
}

func (e *StatusError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, statePath, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s %s: unexpected status code %d", e.Method, statePath, e.Code)
}

// Unwrap maps status codes onto inventory sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return inventory.ErrNoDocument
	case http.StatusBadRequest:
		return inventory.ErrInvalid
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		tracer:  otel.Tracer("tapboard/httpstore"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context) (*inventory.State, error) {
	ctx, span := c.tracer.Start(ctx, "httpstore.get", trace.WithAttributes(attribute.String("url", c.baseURL+statePath)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statePath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := statusError(http.MethodGet, resp)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var st inventory.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &st, nil
}

func (c *Client) Put(ctx context.Context, st *inventory.State) error {
	ctx, span := c.tracer.Start(ctx, "httpstore.put", trace.WithAttributes(attribute.String("url", c.baseURL+statePath)))
	defer span.End()

	body, err := json.Marshal(st)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+statePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := statusError(http.MethodPut, resp)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func statusError(method string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	return &StatusError{Method: method, Code: resp.StatusCode, Msg: body.Error}
}
