package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL              = "https://api.mercadopago.com"
	requestBodyReadLimit  int64 = 1024
	paymentStatusApproved       = "approved"
)

var (
	errAccessTokenRequired = errors.New("mercado pago access token is required")
)

// Client wraps the Mercado Pago checkout and payments APIs.
type Client struct {
	httpClient          *http.Client
	baseURL             string
	accessToken         string
	currencyID          string
	statementDescriptor string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Mercado Pago client from configuration.
func NewClient(accessToken, currencyID, statementDescriptor string, opts ...Option) (*Client, error) {
	trimmedToken := strings.TrimSpace(accessToken)
	if trimmedToken == "" {
		return nil, errAccessTokenRequired
	}

	client := &Client{
		accessToken:         trimmedToken,
		currencyID:          strings.TrimSpace(currencyID),
		statementDescriptor: strings.TrimSpace(statementDescriptor),
		baseURL:             defaultBaseURL,
		httpClient:          &http.Client{Timeout: 10 * time.Second},
	}
	if client.currencyID == "" {
		client.currencyID = "ARS"
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// PreferenceItem is a single purchasable line in a checkout preference.
type PreferenceItem struct {
	ID        string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PreferenceRequest describes the checkout session to open for an order.
type PreferenceRequest struct {
	ExternalReference string
	Items             []PreferenceItem
	PayerEmail        string
	PayerName         string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	NotificationURL   string
}

// Preference is the created checkout session the buyer gets redirected to.
type Preference struct {
	ID        string
	InitPoint string
}

// Payment is the authoritative payment state fetched back from the gateway.
type Payment struct {
	ID                string
	Status            string
	ExternalReference string
	TransactionAmount decimal.Decimal
	PayerEmail        string
}

// Approved reports whether the gateway settled the payment.
func (p Payment) Approved() bool {
	return p.Status == paymentStatusApproved
}

// CreatePreference opens a checkout session for the provided order lines.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	if strings.TrimSpace(req.ExternalReference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference requires at least one item")
	}

	type apiItem struct {
		ID         string  `json:"id"`
		Title      string  `json:"title"`
		Quantity   int     `json:"quantity"`
		UnitPrice  float64 `json:"unit_price"`
		CurrencyID string  `json:"currency_id"`
	}
	items := make([]apiItem, 0, len(req.Items))
	for _, item := range req.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		price, _ := item.UnitPrice.Float64()
		items = append(items, apiItem{
			ID:         item.ID,
			Title:      item.Title,
			Quantity:   qty,
			UnitPrice:  price,
			CurrencyID: c.currencyID,
		})
	}

	body := map[string]any{
		"items":              items,
		"external_reference": req.ExternalReference,
		"auto_return":        "approved",
		"back_urls": map[string]string{
			"success": req.SuccessURL,
			"failure": req.FailureURL,
			"pending": req.PendingURL,
		},
	}
	if c.statementDescriptor != "" {
		body["statement_descriptor"] = c.statementDescriptor
	}
	if req.PayerEmail != "" {
		payer := map[string]string{"email": req.PayerEmail}
		if req.PayerName != "" {
			payer["name"] = req.PayerName
		}
		body["payer"] = payer
	}
	if req.NotificationURL != "" {
		body["notification_url"] = req.NotificationURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal preference request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("checkout/preferences"), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build preference request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute preference request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError(resp, "preference request failed")
	}

	var apiResp struct {
		ID               string `json:"id"`
		InitPoint        string `json:"init_point"`
		SandboxInitPoint string `json:"sandbox_init_point"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode preference response")
	}

	initPoint := apiResp.InitPoint
	if initPoint == "" {
		initPoint = apiResp.SandboxInitPoint
	}

	return &Preference{ID: apiResp.ID, InitPoint: initPoint}, nil
}

// GetPayment fetches the authoritative payment record for a webhook notification.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mercado pago client not configured")
	}
	trimmed := strings.TrimSpace(paymentID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment ID is required")
	}

	endpoint := fmt.Sprintf("%s/v1/payments/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build payment request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute payment request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "payment request failed")
	}

	var apiResp struct {
		ID                json.Number `json:"id"`
		Status            string      `json:"status"`
		ExternalReference string      `json:"external_reference"`
		TransactionAmount float64     `json:"transaction_amount"`
		Payer             struct {
			Email string `json:"email"`
		} `json:"payer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment response")
	}

	return &Payment{
		ID:                apiResp.ID.String(),
		Status:            apiResp.Status,
		ExternalReference: apiResp.ExternalReference,
		TransactionAmount: decimal.NewFromFloat(apiResp.TransactionAmount),
		PayerEmail:        apiResp.Payer.Email,
	}, nil
}

func (c *Client) statusError(resp *http.Response, msg string) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		msg,
	)
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
