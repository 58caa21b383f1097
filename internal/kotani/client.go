package kotani

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// tokenRefreshSkew renews the auth token slightly before its reported expiry
// so an in-flight request never carries a token that lapses mid-call.
const tokenRefreshSkew = 30 * time.Second

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	mu          sync.Mutex
	authToken   string
	tokenExpiry time.Time
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type authResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// ensureToken returns a valid bearer token, refreshing it under the client
// mutex only when missing or within the refresh skew of expiry.
func (c *Client) ensureToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenRefreshSkew)) {
		return c.authToken, nil
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("%s/auth/token", c.BaseURL), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("X-API-Key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("auth error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	var auth authResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return "", fmt.Errorf("failed to unmarshal auth response: %w", err)
	}

	c.authToken = auth.Token
	c.tokenExpiry = time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	return c.authToken, nil
}

func (c *Client) doRequest(method, endpoint string, body interface{}) ([]byte, error) {
	token, err := c.ensureToken()
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, fmt.Sprintf("%s%s", c.BaseURL, endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api error: %s (status: %d)", string(respBody), resp.StatusCode)
	}

	return respBody, nil
}

type MobileMoneyPayoutRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Network     string  `json:"network"` // mobile money carrier
	Reference   string  `json:"referenceId,omitempty"`
}

type PayoutResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// CreateMobileMoneyPayout sends fiat to a mobile-money wallet.
func (c *Client) CreateMobileMoneyPayout(req MobileMoneyPayoutRequest) (*PayoutResponse, error) {
	respBody, err := c.doRequest("POST", "/payouts/mobile-money", req)
	if err != nil {
		return nil, err
	}

	var payout PayoutResponse
	if err := json.Unmarshal(respBody, &payout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &payout, nil
}
