// Package iss proxies the live position of the International Space Station
// for the tracker page. Requests go server-side so the browser never talks
// to the upstream APIs directly (they are rate-limited and CORS-hostile).
package iss

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cosmoexplorer/backend/internal/config"
	"github.com/cosmoexplorer/backend/internal/pkg/httpretry"
)

// Position is the normalized ISS position served to the frontend,
// regardless of which upstream answered.
type Position struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Altitude   float64 `json:"altitude"`
	Velocity   float64 `json:"velocity"`
	Visibility string  `json:"visibility"`
	Timestamp  int64   `json:"timestamp"`
}

// backupResponse is the shape returned by the backup upstream (N2YO-style
// positions array).
type backupResponse struct {
	Positions []struct {
		SatLatitude  float64 `json:"satlatitude"`
		SatLongitude float64 `json:"satlongitude"`
		SatAltitude  float64 `json:"sataltitude"`
		Velocity     float64 `json:"velocity"`
	} `json:"positions"`
}

// Client fetches the ISS position from a primary upstream with a backup
// fallback. The whole fetch (both upstreams) is bounded by the configured
// timeout.
type Client struct {
	http       httpretry.HTTPDoer
	primaryURL string
	backupURL  string
	timeout    time.Duration
	now        func() time.Time
}

// NewClient creates an ISS position client.
func NewClient(cfg config.ISSConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:       httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 1),
		primaryURL: cfg.PrimaryURL,
		backupURL:  cfg.BackupURL,
		timeout:    timeout,
		now:        time.Now,
	}
}

// FetchPosition returns the current ISS position, trying the primary
// upstream first and falling back to the backup. It fails only when every
// configured upstream fails.
func (c *Client) FetchPosition(ctx context.Context) (*Position, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pos, primaryErr := c.fetchPrimary(ctx)
	if primaryErr == nil {
		return pos, nil
	}

	if c.backupURL == "" {
		return nil, fmt.Errorf("fetch ISS position: %w", primaryErr)
	}

	pos, backupErr := c.fetchBackup(ctx)
	if backupErr != nil {
		return nil, fmt.Errorf("fetch ISS position: primary: %v; backup: %w", primaryErr, backupErr)
	}
	return pos, nil
}

func (c *Client) fetchPrimary(ctx context.Context) (*Position, error) {
	body, err := c.get(ctx, c.primaryURL)
	if err != nil {
		return nil, err
	}

	var pos Position
	if err := json.Unmarshal(body, &pos); err != nil {
		return nil, fmt.Errorf("decode primary response: %w", err)
	}
	return &pos, nil
}

func (c *Client) fetchBackup(ctx context.Context) (*Position, error) {
	body, err := c.get(ctx, c.backupURL)
	if err != nil {
		return nil, err
	}

	var br backupResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return nil, fmt.Errorf("decode backup response: %w", err)
	}
	if len(br.Positions) == 0 {
		return nil, fmt.Errorf("backup response carried no positions")
	}

	p := br.Positions[0]
	return &Position{
		Latitude:   p.SatLatitude,
		Longitude:  p.SatLongitude,
		Altitude:   p.SatAltitude,
		Velocity:   p.Velocity,
		Visibility: "daylight",
		Timestamp:  c.now().Unix(),
	}, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "CosmoExplorer/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	// Position payloads are tiny; cap reads so a misbehaving upstream
	// cannot balloon memory.
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
