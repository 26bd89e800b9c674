package hostapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"time"

	"nb-assistant/internal/filestore"
)

const codeNotFound = 404

type filePathRequest struct {
	Path string `json:"path"`
}

// GetFile returns the raw content of a workspace file. The kernel answers a
// missing file with a JSON envelope instead of the file body.
func (c *Client) GetFile(ctx context.Context, p string) ([]byte, error) {
	body, err := json.Marshal(filePathRequest{Path: p})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, "/api/file/getFile", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}

	if resp.StatusCode == http.StatusOK {
		return raw, nil
	}

	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Code == codeNotFound {
		return nil, fmt.Errorf("%w: %s", filestore.ErrNotExist, p)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", filestore.ErrNotExist, p)
	}
	return nil, fmt.Errorf("bad status %d reading %s: %s", resp.StatusCode, p, string(raw))
}

// PutFile uploads data to a workspace file.
func (c *Client) PutFile(ctx context.Context, p string, overwrite bool, data []byte) error {
	if !overwrite {
		_, err := c.GetFile(ctx, p)
		if err == nil {
			return fmt.Errorf("%w: %s", filestore.ErrExist, p)
		}
		if !errors.Is(err, filestore.ErrNotExist) {
			return err
		}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"path":    p,
		"isDir":   "false",
		"modTime": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	fw, err := mw.CreateFormFile("file", path.Base(p))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close form: %w", err)
	}

	req, err := c.newRequest(ctx, "/api/file/putFile", mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	return c.do(req, "/api/file/putFile", nil)
}

// RemoveFile deletes a workspace file. A missing file is not an error.
func (c *Client) RemoveFile(ctx context.Context, p string) error {
	err := c.post(ctx, "/api/file/removeFile", filePathRequest{Path: p}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == codeNotFound {
		return nil
	}
	return err
}
