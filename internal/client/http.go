package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
)

// Upload sends size bytes from r with a plain PUT. The relay holds the request until a receiver arrives.
func (c *Client) Upload(ctx context.Context, id, name string, size int64, r io.Reader) error {
	path := "/" + url.PathEscape(id)
	if name != "" {
		path += "/" + url.PathEscape(name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.httpURL(path), r)
	if err != nil {
		return err
	}
	req.ContentLength = size
	if size == 0 {
		req.Body = http.NoBody
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return relayError(resp.StatusCode, string(body))
	}
	return nil
}

// Download fetches the transfer with a plain GET and copies it into w.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) (domain.FileMetadata, error) {
	var meta domain.FileMetadata

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpURL("/"+url.PathEscape(id)), nil)
	if err != nil {
		return meta, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return meta, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return meta, relayError(resp.StatusCode, string(body))
	}

	meta.Type = resp.Header.Get("Content-Type")
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		meta.Name = params["filename"]
	}
	if resp.ContentLength > 0 {
		meta.Size = resp.ContentLength
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return meta, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	if meta.Size > 0 && written != meta.Size {
		return meta, fmt.Errorf("%w: got %d of %d bytes", ErrIncomplete, written, meta.Size)
	}
	return meta, nil
}
