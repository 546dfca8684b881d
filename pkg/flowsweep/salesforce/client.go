package salesforce

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
)

// DefaultAPIVersion is the REST API version every endpoint path is pinned to.
const DefaultAPIVersion = "v60.0"

// Client is an instance-scoped Salesforce API client. It holds the access
// token for exactly one org pipeline run.
type Client struct {
	baseURL    *url.URL
	token      string
	apiVersion string
	userAgent  string
	http       *http.Client
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	c := &Client{
		apiVersion: DefaultAPIVersion,
		userAgent:  "flowsweep",
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("instance URL is required")
	}
	return c, nil
}

func WithInstanceURL(instanceURL string) Option {
	return func(c *Client) error {
		if instanceURL == "" {
			return errors.New("instance URL is required")
		}
		parsed, err := url.Parse(instanceURL)
		if err != nil {
			return fmt.Errorf("invalid instance URL: %w", err)
		}
		c.baseURL = parsed
		return nil
	}
}

func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

func WithAPIVersion(version string) Option {
	return func(c *Client) error {
		if version != "" {
			c.apiVersion = version
		}
		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient != nil {
			c.http = httpClient
		}
		return nil
	}
}

// APIVersion returns the pinned REST API version.
func (c *Client) APIVersion() string { return c.apiVersion }

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, out any) error {
	fullURL := *c.baseURL
	fullURL.Path = strings.TrimRight(fullURL.Path, "/") + endpoint
	if query != nil {
		fullURL.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		bytesBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(bytesBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// query runs a SOQL query against the data API and decodes the records.
func (c *Client) query(ctx context.Context, soql string, out any) error {
	return c.runQuery(ctx, fmt.Sprintf("/services/data/%s/query", c.apiVersion), soql, out)
}

// toolingQuery runs a SOQL query against the Tooling API.
func (c *Client) toolingQuery(ctx context.Context, soql string, out any) error {
	return c.runQuery(ctx, fmt.Sprintf("/services/data/%s/tooling/query", c.apiVersion), soql, out)
}

func (c *Client) runQuery(ctx context.Context, endpoint, soql string, out any) error {
	params := url.Values{}
	params.Set("q", soql)
	if err := c.do(ctx, http.MethodGet, endpoint, params, nil, out); err != nil {
		return &QueryError{SOQL: soql, Err: err}
	}
	return nil
}

// apiErrorBody is the element shape of Salesforce's JSON error responses.
type apiErrorBody struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var parsed []apiErrorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil && len(parsed) > 0 {
		apiErr.ErrorCode = parsed[0].ErrorCode
		apiErr.Message = parsed[0].Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
