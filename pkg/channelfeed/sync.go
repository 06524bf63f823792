package channelfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// SyncResult is the remote sync trigger's reply.
type SyncResult struct {
	Success      bool   `json:"success"`
	SyncedCount  int    `json:"syncedCount"`
	Message      string `json:"message"`
	FallbackMode bool   `json:"fallbackMode,omitempty"`
}

// TriggerSync asks the remote side to pull the latest channel data into its
// own store. The action is idempotent and takes no input; any well-formed
// reply, success or not, counts as an attempt.
func (c *Client) TriggerSync(ctx context.Context) (SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/channels/%s/sync", c.baseURL, c.channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return SyncResult{}, fmt.Errorf("channelfeed: build sync request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: sync: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SyncResult{}, fmt.Errorf("%w: sync status %d", ErrUnavailable, resp.StatusCode)
	}

	var res SyncResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return SyncResult{}, fmt.Errorf("%w: sync decode: %w", ErrMalformed, err)
	}
	c.log.Debug("sync triggered",
		zap.Bool("success", res.Success),
		zap.Int("syncedCount", res.SyncedCount),
		zap.Bool("fallbackMode", res.FallbackMode),
	)
	return res, nil
}
