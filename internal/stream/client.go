package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mstream-dl/internal/session"
)

const (
	DefaultAPIBase   = "https://euwe-1.api.microsoftstream.com"
	DefaultUserAgent = "mstream-dl/1.0"

	maxBodyBytes = 64 << 20
	aesKeyLen    = 16
)

// Client talks to the video API and the manifest/key hosts.
type Client struct {
	HTTPClient *http.Client
	APIBase    string
	UserAgent  string
}

func NewClient(apiBase string) *Client {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		APIBase:    base,
		UserAgent:  DefaultUserAgent,
	}
}

// FetchError is any transport failure or unexpected HTTP status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status=%d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetch GETs rawURL with the credential attached. Both 200 and 403 return the
// body: the API reports authorization problems in a JSON error object.
func (c *Client) Fetch(ctx context.Context, rawURL string, cred session.Credential) ([]byte, error) {
	body, _, err := c.get(ctx, rawURL, cred)
	return body, err
}

// FetchKey fetches an AES-128 key. A 403 is an AuthorizationError and any
// body that is not a raw 16-byte key is a FetchError.
func (c *Client) FetchKey(ctx context.Context, rawURL string, cred session.Credential) ([]byte, error) {
	body, status, err := c.get(ctx, rawURL, cred)
	if err != nil {
		return nil, err
	}
	if status == http.StatusForbidden {
		authErr := &AuthorizationError{Code: "Forbidden"}
		var resp struct {
			Error *responseError `json:"error"`
		}
		if json.Unmarshal(body, &resp) == nil && resp.Error != nil && resp.Error.Code != "" {
			authErr.Code = resp.Error.Code
			authErr.Message = resp.Error.Message
		}
		return nil, authErr
	}
	if len(body) != aesKeyLen {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("key is %d bytes, want %d", len(body), aesKeyLen)}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL string, cred session.Credential) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, &FetchError{URL: rawURL, Err: err}
	}
	if !cred.Empty() {
		req.Header.Set("Cookie", cred.Header)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, 0, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusForbidden {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, &FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
