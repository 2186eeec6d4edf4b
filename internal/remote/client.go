package remote

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

	"github.com/google/uuid"

	"github.com/hyperengineering/regs"
)

// Request headers.
const (
	HeaderSourceID  = "X-Regs-Source-ID"
	HeaderRequestID = "X-Request-ID"
)

// HTTPClient implements regs.RemoteStore against the remote record service.
// It is safe for concurrent use.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	sourceID   string
	httpClient *http.Client
}

var _ regs.RemoteStore = (*HTTPClient)(nil)

// NewHTTPClient creates a new remote record service client.
// sourceID is optional; if non-empty, it's sent as X-Regs-Source-ID header for observability.
func NewHTTPClient(baseURL, apiKey, sourceID string) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		sourceID: sourceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func (c *HTTPClient) WithHTTPClient(client *http.Client) *HTTPClient {
	c.httpClient = client
	return c
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "regs-client/1.0")
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if strings.TrimSpace(c.sourceID) != "" {
		req.Header.Set(HeaderSourceID, c.sourceID)
	}
}

func (c *HTTPClient) recordsURL(collection string) string {
	return c.baseURL + "/api/v1/collections/" + url.PathEscape(collection) + "/records"
}

func (c *HTTPClient) recordURL(collection, id string) string {
	return c.recordsURL(collection) + "/" + url.PathEscape(id)
}

func newRemoteError(op string, statusCode int, body []byte) *regs.RemoteError {
	msg := ""
	if len(body) > 0 && statusCode >= 400 {
		var er ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			msg = er.Error
		} else if len(body) > 200 {
			msg = string(body[:200]) + "..."
		} else {
			msg = string(body)
		}
	}
	return &regs.RemoteError{
		Operation:  op,
		StatusCode: statusCode,
		Err:        fmt.Errorf("HTTP %d: %s", statusCode, msg),
	}
}

func (c *HTTPClient) do(ctx context.Context, op, method, target string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, &regs.RemoteError{Operation: op, Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &regs.RemoteError{Operation: op, Err: err}
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &regs.RemoteError{Operation: op, Err: err}
	}
	return resp, nil
}

// Upsert creates or replaces a record.
func (c *HTTPClient) Upsert(ctx context.Context, collection, id string, rec regs.Record) error {
	resp, err := c.do(ctx, "upsert", http.MethodPut, c.recordURL(collection, id), rec)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return newRemoteError("upsert", resp.StatusCode, body)
	}
	return nil
}

// QueryByOwner returns every record of owner in collection. An empty owner
// returns no records without a request.
func (c *HTTPClient) QueryByOwner(ctx context.Context, collection, owner string) ([]regs.Record, error) {
	if owner == "" {
		return []regs.Record{}, nil
	}

	target := c.recordsURL(collection) + "?" + url.Values{"owner": {owner}}.Encode()
	resp, err := c.do(ctx, "query_by_owner", http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, newRemoteError("query_by_owner", resp.StatusCode, body)
	}

	var list RecordList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, &regs.RemoteError{Operation: "query_by_owner", Err: err}
	}
	if list.Records == nil {
		list.Records = []regs.Record{}
	}
	return list.Records, nil
}

// Delete removes a record. A 404 counts as success.
func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, c.recordURL(collection, id), nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return newRemoteError("delete", resp.StatusCode, body)
}

// Health returns the service health report.
func (c *HTTPClient) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.do(ctx, "health_check", http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, newRemoteError("health_check", resp.StatusCode, body)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, &regs.RemoteError{Operation: "health_check", Err: err}
	}
	return &health, nil
}

// Ping reports whether the service is reachable and healthy.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}
