package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/security"
)

// Client is an HTTP implementation of core.Remote for the Galaxy API.
type Client struct {
	baseURL     *url.URL
	apiKey      string
	httpClient  *http.Client
	userAgent   string
	maxDownload int64
	logger      *slog.Logger
}

var _ core.Remote = (*Client)(nil)

// Version is the server version reported by api/version.
type Version struct {
	Major string `json:"version_major"`
	Minor string `json:"version_minor"`
}

func (v Version) String() string {
	if v.Minor == "" {
		return v.Major
	}
	return v.Major + "." + v.Minor
}

// New creates a client for the Galaxy server at baseURL.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("remote: empty base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:     u,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		maxDownload: DefaultMaxDownloadSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt.applyClient(c)
	}
	return c, nil
}

// Invoke starts a workflow in a history. Local dataset ids are not sent.
func (c *Client) Invoke(ctx context.Context, historyID, workflowID string, inputs map[string]core.WorkflowInput, parameters map[string]any) (*core.InvocationDescriptor, error) {
	wire := make(map[string]map[string]string, len(inputs))
	for step, in := range inputs {
		wire[step] = map[string]string{"id": in.ID, "src": in.Src}
	}
	if parameters == nil {
		parameters = map[string]any{}
	}
	payload, err := json.Marshal(map[string]any{
		"history_id": historyID,
		"inputs":     wire,
		"parameters": parameters,
	})
	if err != nil {
		return nil, &core.RemoteError{Op: "invoke workflow", ID: workflowID, Err: err}
	}

	var inv core.InvocationDescriptor
	path := "api/workflows/" + url.PathEscape(workflowID) + "/invocations"
	if err := c.doJSON(ctx, "invoke workflow", workflowID, http.MethodPost, path, nil, bytes.NewReader(payload), "application/json", &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvocation fetches an invocation descriptor.
func (c *Client) GetInvocation(ctx context.Context, invocationID string) (*core.InvocationDescriptor, error) {
	var inv core.InvocationDescriptor
	path := "api/invocations/" + url.PathEscape(invocationID)
	if err := c.doJSON(ctx, "get invocation", invocationID, http.MethodGet, path, nil, nil, "", &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetJob fetches the full view of a job, including stdout and stderr.
func (c *Client) GetJob(ctx context.Context, jobID string) (*core.JobDescriptor, error) {
	var job core.JobDescriptor
	path := "api/jobs/" + url.PathEscape(jobID)
	if err := c.doJSON(ctx, "get job", jobID, http.MethodGet, path, url.Values{"full": {"true"}}, nil, "", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetDataset fetches a history dataset descriptor.
func (c *Client) GetDataset(ctx context.Context, datasetID, historyID string) (*core.DatasetDescriptor, error) {
	var ds core.DatasetDescriptor
	path := "api/histories/" + url.PathEscape(historyID) + "/contents/" + url.PathEscape(datasetID)
	if err := c.doJSON(ctx, "get dataset", datasetID, http.MethodGet, path, nil, nil, "", &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// GetHistory fetches a history descriptor.
func (c *Client) GetHistory(ctx context.Context, historyID string) (*core.HistoryDescriptor, error) {
	var h core.HistoryDescriptor
	path := "api/histories/" + url.PathEscape(historyID)
	if err := c.doJSON(ctx, "get history", historyID, http.MethodGet, path, nil, nil, "", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// DownloadDataset returns the payload of a dataset. Empty datasets are not
// requested from the display endpoint.
func (c *Client) DownloadDataset(ctx context.Context, historyID, datasetID string) ([]byte, error) {
	ds, err := c.GetDataset(ctx, datasetID, historyID)
	if err != nil {
		return nil, err
	}
	if ds.FileSize == 0 {
		return []byte{}, nil
	}

	path := "api/histories/" + url.PathEscape(historyID) + "/contents/" + url.PathEscape(datasetID) + "/display"
	resp, err := c.do(ctx, "download dataset", datasetID, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload+1))
	if err != nil {
		return nil, &core.RemoteError{Op: "download dataset", ID: datasetID, Status: resp.StatusCode, Err: err}
	}
	if int64(len(data)) > c.maxDownload {
		return nil, &core.RemoteError{
			Op:     "download dataset",
			ID:     datasetID,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("payload exceeds %d bytes", c.maxDownload),
		}
	}
	return data, nil
}

// CreateHistory creates an empty history.
func (c *Client) CreateHistory(ctx context.Context, name string) (*core.HistoryDescriptor, error) {
	form := url.Values{"name": {name}}
	var h core.HistoryDescriptor
	err := c.doJSON(ctx, "create history", name, http.MethodPost, "api/histories", nil,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &h)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// DeleteHistory deletes and purges a history.
func (c *Client) DeleteHistory(ctx context.Context, historyID string) error {
	path := "api/histories/" + url.PathEscape(historyID)
	return c.doJSON(ctx, "delete history", historyID, http.MethodDelete, path, nil,
		strings.NewReader(`{"purge":true}`), "application/json", nil)
}

// Version reports the server version.
func (c *Client) Version(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.doJSON(ctx, "get version", "", http.MethodGet, "api/version", nil, nil, "", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) doJSON(ctx context.Context, op, id, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	resp, err := c.do(ctx, op, id, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.RemoteError{Op: op, ID: id, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// do sends one request. Non-2xx responses are returned as *core.RemoteError
// with the body closed; on success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, id, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, &core.RemoteError{Op: op, ID: id, Err: err}
	}
	target := c.baseURL.ResolveReference(ref)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, &core.RemoteError{Op: op, ID: id, Err: err}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("galaxy request failed", "op", op, "id", id, "error", err)
		return nil, &core.RemoteError{Op: op, ID: id, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("galaxy request rejected", "op", op, "id", id, "status", resp.StatusCode)
		return nil, &core.RemoteError{
			Op:     op,
			ID:     id,
			Status: resp.StatusCode,
			Err:    errors.New(security.SanitizeErrorMessage(strings.TrimSpace(string(msg)))),
		}
	}
	return resp, nil
}
