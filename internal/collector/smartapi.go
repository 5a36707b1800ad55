package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
)

const (
	DefaultSmartAPIURL = "https://apiconnect.angelone.in"

	loginPath  = "/rest/auth/angelbroking/user/v1/loginByPassword"
	candlePath = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

// SmartAPIConfig holds the credentials and client identity sent to SmartAPI.
type SmartAPIConfig struct {
	APIKey     string
	ClientID   string
	MPIN       string
	TOTPSecret string

	BaseURL        string
	Timeout        time.Duration
	Proxy          string
	ClientLocalIP  string
	ClientPublicIP string
	MACAddress     string
}

// SmartAPIClient implements Session and HistoricalSource against the Angel One SmartAPI.
// Tokens are replaced atomically on each login; readers always see the latest session.
type SmartAPIClient struct {
	cfg    SmartAPIConfig
	Client *http.Client
	Now    func() time.Time

	mu           sync.RWMutex
	jwtToken     string
	refreshToken string
	feedToken    string
	expiresAt    time.Time
}

// NewSmartAPIClient creates a client with optional proxy support.
func NewSmartAPIClient(cfg SmartAPIConfig) *SmartAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSmartAPIURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ClientLocalIP == "" {
		cfg.ClientLocalIP = "127.0.0.1"
	}
	if cfg.ClientPublicIP == "" {
		cfg.ClientPublicIP = "106.193.147.98"
	}
	if cfg.MACAddress == "" {
		cfg.MACAddress = "00:00:00:00:00:00"
	}
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &SmartAPIClient{
		cfg: cfg,
		Client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		Now: time.Now,
	}
}

type loginResponse struct {
	Status    bool   `json:"status"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorcode"`
	Data      *struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	} `json:"data"`
}

// Login generates a TOTP code and opens a new session with the client code and MPIN.
func (c *SmartAPIClient) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, c.Now())
	if err != nil {
		return fmt.Errorf("generate totp: %w", err)
	}
	payload := map[string]string{
		"clientcode": c.cfg.ClientID,
		"password":   c.cfg.MPIN,
		"totp":       code,
	}
	body, status, err := c.post(ctx, loginPath, payload, "")
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("login: status %d, body: %s", status, string(body))
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if !lr.Status || lr.Data == nil || lr.Data.JWTToken == "" {
		return fmt.Errorf("login rejected: %s (%s)", lr.Message, lr.ErrorCode)
	}

	token := strings.TrimPrefix(lr.Data.JWTToken, "Bearer ")
	exp := tokenExpiry(token)

	c.mu.Lock()
	c.jwtToken = token
	c.refreshToken = lr.Data.RefreshToken
	c.feedToken = lr.Data.FeedToken
	c.expiresAt = exp
	c.mu.Unlock()

	if exp.IsZero() {
		log.Printf("[INFO] smartapi session established for %s", c.cfg.ClientID)
	} else {
		log.Printf("[INFO] smartapi session established for %s, expires %s", c.cfg.ClientID, exp.Format(time.RFC3339))
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// SessionExpiry returns the expiry of the current session token, zero if unknown.
func (c *SmartAPIClient) SessionExpiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

// HasSession reports whether a login has succeeded.
func (c *SmartAPIClient) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtToken != ""
}

// GetCandleData queries historical candles. HTTP 401/403 are reported as failed
// responses with codes HTTP401/HTTP403 so callers can treat them as session errors.
func (c *SmartAPIClient) GetCandleData(ctx context.Context, req CandleRequest) (*CandleResponse, error) {
	c.mu.RLock()
	token := c.jwtToken
	c.mu.RUnlock()
	if token == "" {
		return &CandleResponse{Status: false, Message: "Invalid Token: no active session", ErrorCode: "AG8001"}, nil
	}

	body, status, err := c.post(ctx, candlePath, req, token)
	if err != nil {
		return nil, fmt.Errorf("candle request: %w", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &CandleResponse{
			Status:    false,
			Message:   fmt.Sprintf("unauthorized: %s", strings.TrimSpace(string(body))),
			ErrorCode: fmt.Sprintf("HTTP%d", status),
		}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("candle request: status %d, body: %s", status, string(body))
	}

	var cr CandleResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode candle response: %w", err)
	}
	return &cr, nil
}

func (c *SmartAPIClient) post(ctx context.Context, path string, payload interface{}, token string) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-ClientLocalIP", c.cfg.ClientLocalIP)
	req.Header.Set("X-ClientPublicIP", c.cfg.ClientPublicIP)
	req.Header.Set("X-MACAddress", c.cfg.MACAddress)
	req.Header.Set("X-PrivateKey", c.cfg.APIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
