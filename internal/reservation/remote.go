package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medagenda/or-assistant/pkg/logging"
)

// RemoteClient forwards reservation writes to the authoritative remote
// endpoint (an Apps Script-style exec URL). Every call is bounded by its
// own timeout; responses are decoded leniently because the endpoint is not
// guaranteed to answer well-formed JSON.
type RemoteClient struct {
	endpoint      string
	httpClient    *http.Client
	writeTimeout  time.Duration
	cancelTimeout time.Duration
	logger        *logging.Logger
}

type remoteResponse struct {
	OK       *bool  `json:"ok"`
	Conflict bool   `json:"conflict"`
	Error    string `json:"error"`
}

// NewRemoteClient creates a client for endpoint. An empty endpoint yields a
// nil client, which the repository treats as "remote disabled".
func NewRemoteClient(endpoint string, writeTimeout, cancelTimeout time.Duration, logger *logging.Logger) *RemoteClient {
	if endpoint == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if cancelTimeout <= 0 {
		cancelTimeout = 8 * time.Second
	}
	return &RemoteClient{
		endpoint:      endpoint,
		httpClient:    &http.Client{},
		writeTimeout:  writeTimeout,
		cancelTimeout: cancelTimeout,
		logger:        logger,
	}
}

// Push forwards a new reservation. An explicit conflict indicator maps to
// ErrConflict; anything else that goes wrong is a transient error the
// caller may swallow.
func (c *RemoteClient) Push(ctx context.Context, rec Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("reservation: encode remote record: %w", err)
	}
	status, resp, err := c.post(ctx, c.endpoint, body)
	if err != nil {
		return fmt.Errorf("reservation: remote push: %w", err)
	}
	if resp.Conflict {
		return ErrConflict
	}
	if status < 200 || status >= 300 || (resp.OK != nil && !*resp.OK) {
		return fmt.Errorf("reservation: remote push rejected: HTTP %d %s", status, resp.Error)
	}
	return nil
}

// Cancel forwards a cancellation. The response is logged only; cancellation
// succeeds locally regardless.
func (c *RemoteClient) Cancel(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cancelTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return fmt.Errorf("reservation: encode cancel request: %w", err)
	}
	status, resp, err := c.post(ctx, c.endpoint+"?action=cancel", body)
	if err != nil {
		return fmt.Errorf("reservation: remote cancel: %w", err)
	}
	c.logger.Info("remote cancel response", "id", id, "status", status, "error", resp.Error)
	return nil
}

func (c *RemoteClient) post(ctx context.Context, url string, body []byte) (int, remoteResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, remoteResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, remoteResponse{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var decoded remoteResponse
	// Malformed bodies without an explicit conflict flag count as transient.
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, nil
}
