package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mediavault/pkg/models"
)

// Client is implemented by the remote catalog listing API. The API is
// cursor-only: page N's fetch token is discovered by fetching page N-1.
type Client interface {
	FetchPage(ctx context.Context, category string, cursor *string) ([]models.RawRecord, *string, error)
}

// HTTPClient talks to the real listing endpoint: POST semantics, a
// fixed page-size parameter and a category filter. Non-2xx responses
// are errors, never silently substituted with an empty page.
type HTTPClient struct {
	BaseURL  string
	PageSize int
	Token    string // bearer token forwarded as-is; may be empty
	Client   *http.Client
}

func NewHTTPClient(baseURL string, pageSize int, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		BaseURL:  baseURL,
		PageSize: pageSize,
		Token:    token,
		Client:   &http.Client{Timeout: timeout},
	}
}

type listRequest struct {
	Category string  `json:"category"`
	Limit    int     `json:"limit"`
	Cursor   *string `json:"cursor,omitempty"`
}

type listResponse struct {
	Records    []models.RawRecord `json:"records"`
	NextCursor *string            `json:"next_cursor"`
}

func (c *HTTPClient) FetchPage(ctx context.Context, category string, cursor *string) ([]models.RawRecord, *string, error) {
	payload, err := json.Marshal(listRequest{
		Category: category,
		Limit:    c.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/media/list", bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: request: %w", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("catalog: status %d: %s", resp.StatusCode, string(body))
	}

	var lr listResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return lr.Records, lr.NextCursor, nil
}
