package client

import (
	"context"
	"time"
)

type ImageRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageClient talks to the external image-generation service, one
// request per segment.
type ImageClient struct {
	httpClient
}

func NewImageClient(baseURL string, timeout time.Duration) *ImageClient {
	return &ImageClient{newHTTPClient("image", baseURL, timeout)}
}

func (c *ImageClient) Generate(ctx context.Context, req ImageRequest) ([]byte, error) {
	data, _, err := c.postJSON(ctx, "/v1/generate", req)
	if err != nil {
		return nil, err
	}
	return data, nil
}
