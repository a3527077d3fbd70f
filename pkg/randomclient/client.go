/**
 * @description
 * This package provides a client for the verifiable randomness beacon. Draw
 * outcomes and captcha challenge text must come from randomness the service
 * cannot choose, so all entropy for those paths is fetched from the beacon
 * rather than a local RNG.
 *
 * @dependencies
 * - context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package randomclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the randomness beacon API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new randomness beacon client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RandomResponse is the beacon's response shape.
type RandomResponse struct {
	Data struct {
		Random string `json:"random"`
		Round  uint64 `json:"round"`
	} `json:"data"`
}

// RandomBytes fetches 32 bytes of fresh beacon randomness.
func (c *Client) RandomBytes(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/api/v1/random", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create random request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute random request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read random response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=random_client op=random_bytes status=%d msg=\"non-2xx response\"", resp.StatusCode)
		return nil, fmt.Errorf("randomness beacon returned status %d", resp.StatusCode)
	}

	var randomResp RandomResponse
	if err := json.Unmarshal(bodyBytes, &randomResp); err != nil {
		return nil, fmt.Errorf("failed to decode random response: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(randomResp.Data.Random)
	if err != nil {
		return nil, fmt.Errorf("failed to decode beacon randomness: %w", err)
	}
	if len(raw) < 32 {
		return nil, fmt.Errorf("beacon returned %d random bytes, need 32", len(raw))
	}
	return raw[:32], nil
}
