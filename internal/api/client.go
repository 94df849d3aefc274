package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nullix/taskdeck/internal/session"
)

// CodeUnauthorized is the server's signal that the session is no longer
// valid; callers react by clearing the session and returning to login.
const CodeUnauthorized = "UNAUTHORIZED"

// APIError is the error half of the server's response envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode extracts the machine code from an error, or "" for non-API errors.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func IsUnauthorized(err error) bool {
	return ErrorCode(err) == CodeUnauthorized
}

// Client talks to the task API. It is the only place that attaches
// credentials and unwraps the {data, error} envelope.
type Client struct {
	base    string
	http    *http.Client
	session session.Session
}

func NewClient(base string, sess session.Session) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    http.DefaultClient,
		session: sess,
	}
}

// WithHTTPClient swaps the underlying transport, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

// do sends one request and decodes the envelope into out (which may be nil
// when the caller discards the payload). The body is always parsed as JSON;
// a malformed body surfaces as the raw decode error rather than an APIError.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if env.Error != nil {
			return env.Error
		}
		return &APIError{Code: "UNKNOWN", Message: "unknown error"}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
