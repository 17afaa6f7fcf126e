package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the library HTTP API. It implements Sink and Reader.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

func (c *Client) ReplaceIndex(ctx context.Context, idx Index) error {
	path := "/api/index/" + url.PathEscape(idx.Title)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, idx, nil)
}

func (c *Client) ReplaceVersion(ctx context.Context, v Version) error {
	path := "/api/versions/" + url.PathEscape(v.Title)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, v, nil)
}

// ReplaceTerms is a single PUT; the server swaps the scheme atomically.
func (c *Client) ReplaceTerms(ctx context.Context, scheme string, terms []Term) error {
	return c.do(ctx, http.MethodPut, "/api/terms/"+url.PathEscape(scheme), terms, nil)
}

func (c *Client) ReplaceCategories(ctx context.Context, cats []Category) error {
	return c.do(ctx, http.MethodPut, "/api/categories", cats, nil)
}

func (c *Client) ListIndexes(ctx context.Context) ([]Index, error) {
	var out []Index
	if err := c.do(ctx, http.MethodGet, "/api/index", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetIndex(ctx context.Context, title string) (Index, error) {
	var idx Index
	err := c.do(ctx, http.MethodGet, "/api/index/"+url.PathEscape(title), nil, &idx)
	return idx, err
}

func (c *Client) GetVersion(ctx context.Context, title string) (Version, error) {
	var v Version
	err := c.do(ctx, http.MethodGet, "/api/versions/"+url.PathEscape(title), nil, &v)
	return v, err
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// do sends one request, retrying transport errors and 5xx responses. A 404
// on GET maps to ErrNotFound; a 404 on DELETE is success.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			wait := Backoff(attempt - 1)
			c.log.Warn("retrying library request", "method", method, "path", path, "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		lastErr = c.once(ctx, method, path, body, out)
		if lastErr == nil || !IsRetryable(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		if method == http.MethodDelete {
			return nil
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Op: method + " " + path, Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
