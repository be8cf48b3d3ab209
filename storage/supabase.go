// Package storage talks to the external object store and submission row
// store over their Supabase-style REST surfaces. Both collaborators are
// opaque: this package only knows list/download and single-row lookup.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/finsight/modelpreview/config"
)

// ErrNotFound means no stored model matched the submission at any candidate
// path, or a requested row does not exist.
var ErrNotFound = errors.New("object not found")

// Object is one listing entry of the object store.
type Object struct {
	Name string `json:"name"`
}

// Client accesses one bucket and one submission table.
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	table   string
	httpc   *http.Client
}

// NewClient builds a Client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.SupabaseURL, "/"),
		apiKey:  cfg.SupabaseKey,
		bucket:  cfg.StorageBucket,
		table:   cfg.SubmissionTable,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpc.Do(req)
}

// List returns the objects under a prefix in the bucket.
func (c *Client) List(ctx context.Context, prefix string) ([]Object, error) {
	body, err := json.Marshal(map[string]any{"prefix": prefix, "limit": 100})
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("list %q: HTTP %d", prefix, resp.StatusCode)
	}

	var objects []Object
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("list %q: decode: %w", prefix, err)
	}
	return objects, nil
}

// Download fetches one object's bytes. A 404 from the store maps to
// ErrNotFound.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", path, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("download %q: %w", path, ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("download %q: HTTP %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// candidatePaths are the deterministic locations tried for a submission's
// model before falling back to a prefix listing.
func candidatePaths(submissionID string) []string {
	return []string{
		submissionID + "/model.xlsx",
		submissionID + ".xlsx",
		"uploads/" + submissionID + ".xlsx",
	}
}

// FindModel locates and downloads the model workbook for a submission: the
// exact conventional paths first, then the first spreadsheet listed under
// the submission's prefix. Returns the bytes and the path that resolved.
func (c *Client) FindModel(ctx context.Context, submissionID string) ([]byte, string, error) {
	for _, path := range candidatePaths(submissionID) {
		data, err := c.Download(ctx, path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, "", err
		}
	}

	objects, err := c.List(ctx, submissionID+"/")
	if err != nil {
		return nil, "", err
	}
	for _, obj := range objects {
		if !strings.HasSuffix(strings.ToLower(obj.Name), ".xlsx") {
			continue
		}
		path := submissionID + "/" + obj.Name
		data, err := c.Download(ctx, path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("submission %q: %w", submissionID, ErrNotFound)
}

// Submission fetches the submission row used to decorate rendered output
// (company name, modeling preferences). Absence is not an error condition
// for rendering; callers treat any failure as "no metadata".
func (c *Client) Submission(ctx context.Context, id string) (map[string]any, error) {
	u := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.baseURL, c.table, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("submission %q: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("submission %q: HTTP %d", id, resp.StatusCode)
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("submission %q: decode: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

// escapePath escapes each path segment while keeping the separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
