package Whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"TeleCare/Models"
)

// Client talks to a self-hosted WhatsApp HTTP gateway. It is the fallback
// channel for reminders when a patient has no registered device.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

func (c *Client) SendMessage(ctx context.Context, phone, message string) error {
	if !c.Configured() {
		return fmt.Errorf("whatsapp: %w", Models.ErrNotConfigured)
	}
	phone = NormalizePhone(phone)
	if phone == "" {
		return fmt.Errorf("whatsapp: empty phone number")
	}

	data, err := json.Marshal(map[string]string{"phone": phone, "message": message})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, c.baseURL+"/send/message", data)
	if err != nil {
		return fmt.Errorf("sending whatsapp message: %w", err)
	}
	c.logger.Debug("whatsapp message sent", zap.Int("length", len(message)))
	return nil
}

// LoggedIn reports whether the gateway has a linked device.
func (c *Client) LoggedIn(ctx context.Context) (bool, error) {
	if !c.Configured() {
		return false, fmt.Errorf("whatsapp: %w", Models.ErrNotConfigured)
	}
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/app/devices", nil)
	if err != nil {
		return false, err
	}
	var output struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Results []struct {
			Name   string `json:"name"`
			Device string `json:"device"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &output); err != nil {
		return false, fmt.Errorf("decoding devices response: %w", err)
	}
	return len(output.Results) > 0, nil
}

// LoginQRCode fetches the PNG QR code used to link a device to the gateway.
func (c *Client) LoginQRCode(ctx context.Context) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("whatsapp: %w", Models.ErrNotConfigured)
	}
	body, err := c.do(ctx, http.MethodGet, c.baseURL+"/app/login", nil)
	if err != nil {
		return nil, err
	}
	var output struct {
		Results struct {
			QRLink string `json:"qr_link"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if output.Results.QRLink == "" {
		return nil, fmt.Errorf("gateway returned no QR link")
	}
	return c.do(ctx, http.MethodGet, output.Results.QRLink, nil)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 5<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
