package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/logging"
	"github.com/gitscribe/gitscribe/internal/oauth"
	"github.com/gitscribe/gitscribe/internal/util"
)

// Client is the authenticated gateway to the provider's REST surface.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	credentials *oauth.CredentialManager
	reqLogger   logging.RequestLogger
}

// NewClient constructs a gateway client. reqLogger may be nil to disable
// request logging.
func NewClient(cfg *config.Config, credentials *oauth.CredentialManager, reqLogger logging.RequestLogger) *Client {
	client := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		httpClient:  util.SetProxy(cfg, client),
		baseURL:     cfg.APIBaseURL,
		credentials: credentials,
		reqLogger:   reqLogger,
	}
}

// do performs one authenticated request and decodes the JSON reply into out.
// Calls are strictly sequential; the gateway has no concurrent fan-out.
func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	cred, ok := c.credentials.Read()
	if !ok {
		return ErrNotLoggedIn
	}

	var reqBody []byte
	var bodyReader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("provider: marshal request failed: %w", err)
		}
		reqBody = raw
		bodyReader = bytes.NewReader(raw)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("provider: create request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("provider: read response failed: %w", err)
	}

	if c.reqLogger != nil {
		c.reqLogger.LogExchange(logging.GetRequestID(ctx), method, url, req.Header, reqBody, resp.StatusCode, respBody, time.Since(started))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("provider: parse response failed: %w", err)
	}
	return nil
}
