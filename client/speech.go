package client

import (
	"context"
	"strconv"
	"time"
)

type SpeechRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	VoiceRef string  `json:"voice_ref"`
	Speed    float64 `json:"speed"`
}

type SpeechResult struct {
	Audio    []byte
	Duration time.Duration // zero when the service omits X-Audio-Duration-Ms
}

// SpeechClient talks to the external speech-synthesis service.
type SpeechClient struct {
	httpClient
}

func NewSpeechClient(baseURL string, timeout time.Duration) *SpeechClient {
	return &SpeechClient{newHTTPClient("speech", baseURL, timeout)}
}

func (c *SpeechClient) Synthesize(ctx context.Context, req SpeechRequest) (SpeechResult, error) {
	data, header, err := c.postJSON(ctx, "/v1/synthesize", req)
	if err != nil {
		return SpeechResult{}, err
	}

	result := SpeechResult{Audio: data}
	if ms, err := strconv.ParseInt(header.Get("X-Audio-Duration-Ms"), 10, 64); err == nil && ms > 0 {
		result.Duration = time.Duration(ms) * time.Millisecond
	}
	return result, nil
}
