package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

// ServerClient is the client's view of the zone server.
type ServerClient interface {
	Search(ctx context.Context, c geo.Coordinate) ([]models.HazardDevice, error)
	UpdatePosition(ctx context.Context, c geo.Coordinate) error
	RegisterToken(ctx context.Context, token string) error
	Notifications(ctx context.Context) (<-chan models.PushPayload, error)
}

// HTTPClient talks to the zone server's HTTP API on behalf of one user.
type HTTPClient struct {
	baseURL string
	userID  string
	http    *http.Client
}

func NewHTTPClient(baseURL, userID string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *HTTPClient) Search(ctx context.Context, coord geo.Coordinate) ([]models.HazardDevice, error) {
	q := url.Values{}
	q.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/devices/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error searching devices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var devices []models.HazardDevice
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		return nil, fmt.Errorf("error decoding search response: %w", err)
	}
	return devices, nil
}

func (c *HTTPClient) UpdatePosition(ctx context.Context, coord geo.Coordinate) error {
	body := map[string]any{
		"userId": c.userID,
		"lon":    coord.Longitude,
		"lat":    coord.Latitude,
	}
	return c.postJSON(ctx, "/api/positions", body, http.StatusNoContent)
}

func (c *HTTPClient) RegisterToken(ctx context.Context, token string) error {
	body := map[string]any{
		"userId": c.userID,
		"token":  token,
	}
	return c.postJSON(ctx, "/api/tokens", body, http.StatusCreated)
}

// Notifications opens the server's SSE stream and decodes push payloads.
// Malformed events are dropped; the channel closes when the stream ends.
func (c *HTTPClient) Notifications(ctx context.Context) (<-chan models.PushPayload, error) {
	q := url.Values{}
	q.Set("user_id", c.userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives the client's request timeout.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error connecting to stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	ch := make(chan models.PushPayload, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Bytes()
			data, ok := bytes.CutPrefix(line, []byte("data:"))
			if !ok {
				continue
			}
			var payload models.PushPayload
			if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
				continue
			}
			select {
			case ch <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, body any, wantStatus int) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error posting to %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}
	return nil
}
