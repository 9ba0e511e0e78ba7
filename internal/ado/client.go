package ado

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
)

const (
	// defaultAPIVersion is the api-version query parameter stamped on
	// every request.
	defaultAPIVersion = "7.1"

	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"
)

// Client is a thin HTTP client for the work-tracking REST API. It holds
// the shared base configuration (collection URL, project, API version,
// bearer token) and exposes GET/POST/PATCH with JSON bodies. The client
// performs no retries: every failure is terminal for that call, and
// timeouts are the caller's concern via the supplied http.Client.
type Client struct {
	collectionURL string
	project       string
	token         string
	apiVersion    string
	httpClient    *http.Client
}

// NewClient creates a client for the given collection URL and project.
// The token is a personal access token used for Bearer authentication;
// it is assumed valid for the process lifetime.
func NewClient(collectionURL, project, token string) *Client {
	return &Client{
		collectionURL: strings.TrimRight(collectionURL, "/"),
		project:       project,
		token:         token,
		apiVersion:    defaultAPIVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Project returns the configured project name.
func (c *Client) Project() string {
	return c.project
}

// ProjectURL builds a project-scoped resource URL:
// {collection}/{project}/_apis/{area}/{resource}.
func (c *Client) ProjectURL(area, resource string) string {
	return fmt.Sprintf(
		"%s/%s/_apis/%s/%s",
		c.collectionURL, url.PathEscape(c.project), area, resource,
	)
}

// CollectionURL builds a collection-scoped resource URL:
// {collection}/_apis/{area}/{resource}.
func (c *Client) CollectionURL(area, resource string) string {
	return fmt.Sprintf("%s/_apis/%s/%s", c.collectionURL, area, resource)
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, u string, result any) error {
	body, err := c.do(ctx, http.MethodGet, u, contentTypeJSON, nil)
	if err != nil {
		return err
	}
	return c.decode(http.MethodGet, u, body, result)
}

// GetRaw performs an HTTP GET request and returns the raw response body.
func (c *Client) GetRaw(ctx context.Context, u string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, contentTypeJSON, nil)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(ctx context.Context, u string, body, result any) error {
	respBody, err := c.do(ctx, http.MethodPost, u, contentTypeJSON, body)
	if err != nil {
		return err
	}
	return c.decode(http.MethodPost, u, respBody, result)
}

// Patch performs an HTTP PATCH request carrying a JSON-patch document
// and unmarshals the JSON response.
func (c *Client) Patch(ctx context.Context, u string, ops []PatchOp, result any) error {
	respBody, err := c.do(ctx, http.MethodPatch, u, contentTypeJSONPatch, ops)
	if err != nil {
		return err
	}
	return c.decode(http.MethodPatch, u, respBody, result)
}

// do is the core HTTP method that builds the request, stamps the
// api-version parameter and auth header, and maps failures to
// RequestError values.
func (c *Client) do(
	ctx context.Context,
	method string,
	u string,
	contentType string,
	body any,
) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &RequestError{
				Method: method, URL: u,
				Err: fmt.Errorf("marshaling request body: %w", err),
			}
		}
		bodyReader = bytes.NewReader(data)
	}

	full := u
	if strings.Contains(u, "?") {
		full += "&api-version=" + c.apiVersion
	} else {
		full += "?api-version=" + c.apiVersion
	}

	req, err := http.NewRequestWithContext(ctx, method, full, bodyReader)
	if err != nil {
		return nil, &RequestError{
			Method: method, URL: u,
			Err: fmt.Errorf("creating request: %w", err),
		}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{
			Method: method, URL: u,
			Err: fmt.Errorf("executing request: %w", err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{
			Method: method, URL: u, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("reading response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			Method:     method,
			URL:        u,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	return respBody, nil
}

// decode unmarshals a response body into result, tolerating empty
// bodies (e.g., 204 responses) and nil result targets.
func (c *Client) decode(method, u string, body []byte, result any) error {
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &RequestError{
			Method: method, URL: u,
			Err: fmt.Errorf("unmarshaling response: %w", err),
		}
	}
	return nil
}
