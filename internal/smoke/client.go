package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	mime "mime/multipart"
	"net/http"
	"time"
)

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

// client wraps http.Client with the base URL of the service.
type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *client) get(ctx context.Context, path string) (*response, error) {
	return c.do(ctx, http.MethodGet, path, "", http.NoBody)
}

func (c *client) postJSON(ctx context.Context, path string, body any) (*response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(data))
}

// formFile is a file part of a multipart body.
type formFile struct {
	field, name string
	content     []byte
}

func (c *client) postMultipart(ctx context.Context, path string, fields map[string]string, files ...formFile) (*response, error) {
	var buf bytes.Buffer
	mw := mime.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := fw.Write(f.content); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf)
}

func (c *client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}
