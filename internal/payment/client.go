package payment

// PAYMENT GATEWAY CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Gateway result codes.
const (
	// CodeOK is returned for a fresh successful verification (and for an
	// accepted payment request).
	CodeOK = 100
	// CodeAlreadyVerified is returned when the payment session was already
	// verified; the payment is still good.
	CodeAlreadyVerified = 101
)

type Client struct {
	baseURL    string
	payURL     string
	merchantID string
	httpClient *http.Client
	logger     *zap.Logger
}

// GatewayError is a rejection reported by the gateway itself, as opposed to
// a transport or decoding failure.
type GatewayError struct {
	Code    int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

type RequestResult struct {
	Authority string
	PayURL    string
}

type VerifyResult struct {
	Code       int
	RefID      int64
	RawPayload []byte
}

// Verified reports whether the verification code means the payment went
// through, counting already-verified as success.
func (v *VerifyResult) Verified() bool {
	return v.Code == CodeOK || v.Code == CodeAlreadyVerified
}

func NewClient(baseURL, payURL, merchantID string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		payURL:     payURL,
		merchantID: merchantID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type requestPayload struct {
	MerchantID  string `json:"merchant_id"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Description string `json:"description"`
}

type gatewayEnvelope struct {
	Data struct {
		Code      int    `json:"code"`
		Message   string `json:"message"`
		Authority string `json:"authority"`
		RefID     int64  `json:"ref_id"`
	} `json:"data"`
	Errors struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// RequestPayment opens a payment session for amount and returns the authority
// token plus the link the buyer should follow. A gateway rejection comes back
// as *GatewayError.
func (c *Client) RequestPayment(ctx context.Context, amount int64, description, callbackURL string) (*RequestResult, error) {
	body, err := json.Marshal(requestPayload{
		MerchantID:  c.merchantID,
		Amount:      amount,
		CallbackURL: callbackURL,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	data, _, err := c.post(ctx, "/pg/v4/payment/request.json", body)
	if err != nil {
		return nil, err
	}

	if data.Data.Code != CodeOK || data.Data.Authority == "" {
		return nil, c.gatewayError(data)
	}

	return &RequestResult{
		Authority: data.Data.Authority,
		PayURL:    c.payURL + data.Data.Authority,
	}, nil
}

type verifyPayload struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// VerifyPayment checks a payment session after the gateway callback. The
// result carries the gateway code even when verification failed; an error is
// returned only for transport or decoding problems.
func (c *Client) VerifyPayment(ctx context.Context, amount int64, authority string) (*VerifyResult, error) {
	body, err := json.Marshal(verifyPayload{
		MerchantID: c.merchantID,
		Amount:     amount,
		Authority:  authority,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	data, raw, err := c.post(ctx, "/pg/v4/payment/verify.json", body)
	if err != nil {
		return nil, err
	}

	code := data.Data.Code
	if code == 0 {
		code = data.Errors.Code
	}

	return &VerifyResult{
		Code:       code,
		RefID:      data.Data.RefID,
		RawPayload: raw,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*gatewayEnvelope, []byte, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	var envelope gatewayEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("Gateway response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("code", envelope.Data.Code))

	return &envelope, raw, nil
}

func (c *Client) gatewayError(envelope *gatewayEnvelope) error {
	code := envelope.Errors.Code
	message := envelope.Errors.Message
	if code == 0 {
		code = envelope.Data.Code
	}
	if message == "" {
		message = envelope.Data.Message
	}
	if message == "" {
		message = "payment request rejected"
	}
	return &GatewayError{Code: code, Message: message}
}
