// Package payments integrates M-Pesa STK push and the confirmation round trip.
package payments

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"dukapos/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const darajaTimestampLayout = "20060102150405"

// Client sends payment prompts to a customer's phone.
type Client interface {
	STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
}

type STKPushRequest struct {
	Phone     string
	Amount    decimal.Decimal
	Reference string
	Desc      string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// DarajaClient is a resty-backed implementation of Client.
type DarajaClient struct {
	httpClient  *resty.Client
	cfg         config.MPesaConfig
	now         func() time.Time
	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewDarajaClient(cfg config.MPesaConfig) *DarajaClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &DarajaClient{
		httpClient: restyClient,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ChargeAmount is what the customer is prompted for: Daraja takes whole
// shillings, so the total is rounded up.
func ChargeAmount(total decimal.Decimal) decimal.Decimal {
	return total.Ceil()
}

// callbackURL adds the shared callback token to the configured URL.
func (c *DarajaClient) callbackURL() string {
	if c.cfg.CallbackToken == "" {
		return c.cfg.CallbackURL
	}
	u, err := url.Parse(c.cfg.CallbackURL)
	if err != nil {
		return c.cfg.CallbackURL
	}
	q := u.Query()
	q.Set("token", c.cfg.CallbackToken)
	u.RawQuery = q.Encode()
	return u.String()
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// NormalizePhone converts 07XXXXXXXX and +2547XXXXXXXX forms to 2547XXXXXXXX.
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") {
		p = "254" + p[1:]
	}
	if len(p) != 12 || !strings.HasPrefix(p, "254") {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	if _, err := strconv.ParseUint(p, 10, 64); err != nil {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}
	return p, nil
}

func (c *DarajaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	result := new(tokenResponse)
	apiErr := new(darajaError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret).
		SetQueryParam("grant_type", "client_credentials").
		SetResult(result).
		SetError(apiErr).
		Get("/oauth/v1/generate")
	if err != nil {
		return "", fmt.Errorf("fetch mpesa token: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return "", fmt.Errorf("mpesa token error: status=%d, message=%s", resp.StatusCode(), apiErr.ErrorMessage)
	}

	ttl := time.Hour
	if secs, err := strconv.Atoi(result.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.token = result.AccessToken
	// renew a minute early
	c.tokenExpiry = c.now().Add(ttl - time.Minute)
	return c.token, nil
}

func (c *DarajaClient) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(darajaTimestampLayout)
	desc := req.Desc
	if desc == "" {
		desc = "Payment " + req.Reference
	}
	payload := map[string]any{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          Password(c.cfg.ShortCode, c.cfg.PassKey, timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            ChargeAmount(req.Amount).IntPart(),
		"PartyA":            phone,
		"PartyB":            c.cfg.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.callbackURL(),
		"AccountReference":  req.Reference,
		"TransactionDesc":   desc,
	}

	result := new(STKPushResponse)
	apiErr := new(darajaError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post("/mpesa/stkpush/v1/processrequest")
	if err != nil {
		return nil, fmt.Errorf("send stk push: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("mpesa api error: code=%s, message=%s", apiErr.ErrorCode, apiErr.ErrorMessage)
	}
	if result.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected: %s", result.ResponseDescription)
	}
	return result, nil
}
