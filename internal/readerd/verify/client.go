package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/metroapp/fare-services/internal/comm"
)

// Client calls the fare service verify endpoint on behalf of the reader.
// Any HTTP status with a decodable body is an authoritative outcome; only
// transport-level failures surface as errors.
type Client struct {
	baseURL string
	token   string
	station string
	http    *http.Client
}

func NewClient(baseURL, token, station string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		station: station,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Verify(ctx context.Context, tag string) (comm.VerifyResponse, error) {
	body, err := json.Marshal(comm.VerifyRequest{CardTag: tag, Station: c.station})
	if err != nil {
		return comm.VerifyResponse{}, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/fare/verify", bytes.NewReader(body))
	if err != nil {
		return comm.VerifyResponse{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	rsp, err := c.http.Do(req)
	if err != nil {
		return comm.VerifyResponse{}, fmt.Errorf("verify request: %w", err)
	}
	defer rsp.Body.Close()

	var out comm.VerifyResponse
	if err := json.NewDecoder(rsp.Body).Decode(&out); err != nil {
		return comm.VerifyResponse{}, fmt.Errorf("decode verify response (http %d): %w", rsp.StatusCode, err)
	}
	if out.Status == "" {
		return comm.VerifyResponse{}, fmt.Errorf("verify response missing status (http %d)", rsp.StatusCode)
	}

	return out, nil
}
