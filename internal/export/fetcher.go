package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Fetcher retrieves one binary payload. A timed-out fetch is treated
// exactly like a failed fetch by the retry accounting.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error)
}

// ProxyFetcher is the privileged-context collaborator used for
// cross-origin payloads that cannot be fetched directly.
type ProxyFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcher fetches same-origin payloads directly and routes
// cross-origin URLs through the proxy when one is configured.
type HTTPFetcher struct {
	Client *http.Client
	Origin string       // scheme://host treated as same-origin
	Proxy  ProxyFetcher // optional
}

func NewHTTPFetcher(origin string, proxy ProxyFetcher) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{},
		Origin: origin,
		Proxy:  proxy,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if f.Proxy != nil && !sameOrigin(rawURL, f.Origin) {
		return f.Proxy.Fetch(ctx, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	return data, nil
}

func sameOrigin(rawURL, origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	o, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Scheme == o.Scheme && u.Host == o.Host
}

// HTTPProxy implements ProxyFetcher against a proxy endpoint that
// returns the payload as base64 inside a JSON envelope.
type HTTPProxy struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPProxy(endpoint string, timeout time.Duration) *HTTPProxy {
	return &HTTPProxy{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProxy) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"url": rawURL})
	if err != nil {
		return nil, fmt.Errorf("proxy: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("proxy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy fetch %s: status %d", rawURL, resp.StatusCode)
	}

	var env struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("proxy fetch %s: decode: %w", rawURL, err)
	}

	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("proxy fetch %s: base64: %w", rawURL, err)
	}
	return data, nil
}
