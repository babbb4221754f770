package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// AvatarClient talks to the external avatar-synthesis service. The
// narration audio and the template video are uploaded as multipart form
// data; the response body is the rendered video.
type AvatarClient struct {
	httpClient
}

func NewAvatarClient(baseURL string, timeout time.Duration) *AvatarClient {
	return &AvatarClient{newHTTPClient("avatar", baseURL, timeout)}
}

func (c *AvatarClient) Synthesize(ctx context.Context, audioPath, templatePath string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := addFilePart(mw, "audio", audioPath); err != nil {
		return nil, err
	}
	if err := addFilePart(mw, "template", templatePath); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/synthesize", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Service: "avatar", Code: resp.StatusCode, Body: string(snippet)}
	}

	return io.ReadAll(resp.Body)
}

func addFilePart(mw *multipart.Writer, field, path string) error {
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(part, f)
	return err
}
