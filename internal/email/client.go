// Package email sends transactional mail through an EmailJS-compatible API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrDisabled is returned by Send when the client is not configured.
var ErrDisabled = errors.New("email sending disabled")

const sendPath = "/api/v1.0/email/send"

// Options configures a Client.
type Options struct {
	BaseURL    string
	ServiceID  string
	PublicKey  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client posts template emails.
type Client struct {
	baseURL   string
	serviceID string
	publicKey string
	http      *http.Client
	logger    logrus.FieldLogger
}

// NewClient creates a Client. A client without a service id or public key is
// disabled and fails every Send with ErrDisabled.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		serviceID: opts.ServiceID,
		publicKey: opts.PublicKey,
		http:      httpClient,
		logger:    logger.WithField("component", "email"),
	}
}

// Enabled reports whether the client can send.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.serviceID != "" && c.publicKey != ""
}

type sendRequest struct {
	ServiceID      string                 `json:"service_id"`
	TemplateID     string                 `json:"template_id"`
	UserID         string                 `json:"user_id"`
	TemplateParams map[string]interface{} `json:"template_params"`
}

// Send renders templateID with params.
func (c *Client) Send(ctx context.Context, templateID string, params map[string]interface{}) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:      c.serviceID,
		TemplateID:     templateID,
		UserID:         c.publicKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	c.logger.WithField("template_id", templateID).Debug("email sent")
	return nil
}
