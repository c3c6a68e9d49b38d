package gateway

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

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/oaklinehq/oakline-backend/pkg/config"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
)

var (
	errKeyIDRequired  = errors.New("gateway key id is required")
	errSecretRequired = errors.New("gateway secret is required")
	errLoggerRequired = errors.New("gateway logger is required")
)

// Client talks to the external payment gateway. Remote-call failures map to
// CodeDependency (retryable); signature mismatches map to
// CodePaymentVerification and must never be retried with the same signature.
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	secret     string
	maxRetries uint64
	retryDelay time.Duration
	logger     *logger.Logger
}

// Intent is the remote payment intent returned by the gateway.
type Intent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// NewClient validates credentials and builds the gateway wrapper.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errSecretRequired
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyID:      keyID,
		secret:     secret,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logg,
	}
	logg.Info(ctx, "payment gateway client initialized")
	return c, nil
}

// Secret exposes the shared signing secret for verification helpers.
func (c *Client) Secret() string {
	if c == nil {
		return ""
	}
	return c.secret
}

type createIntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateIntent registers a remote payment intent for the given amount. The
// amount is converted to the gateway's minor unit with explicit rounding.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, receiptRef string, metadata map[string]string) (*Intent, error) {
	if amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent amount must be positive")
	}
	body := createIntentRequest{
		Amount:   AmountMinorUnits(amount),
		Currency: currency,
		Receipt:  receiptRef,
		Notes:    metadata,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding intent request")
	}

	var intent Intent
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return c.postIntent(ctx, payload, &intent)
	})
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) postIntent(ctx context.Context, payload []byte, out *Intent) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building intent request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unreachable"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response"))
	}

	switch {
	case resp.StatusCode >= 500:
		return retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment gateway returned %d", resp.StatusCode)))
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment gateway rejected intent with %d", resp.StatusCode))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	if out.ID == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "gateway response missing intent id")
	}
	return nil
}
