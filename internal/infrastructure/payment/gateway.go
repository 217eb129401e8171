package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Session is the hosted payment page handed back by the gateway. The customer
// is redirected there to pay; the outcome arrives later on the validate
// callback endpoint.
type Session struct {
	GatewayPageURL string
}

type SessionRequest struct {
	Amount        decimal.Decimal
	TransactionID string
	CustomerName  string
	CustomerEmail string
}

type Gateway interface {
	InitSession(ctx context.Context, req SessionRequest) (Session, error)
}

type Config struct {
	StoreID       string
	StorePassword string
	PaymentAPI    string
	SuccessURL    string
	FailURL       string
	CancelURL     string
}

type sslGateway struct {
	cfg    Config
	client *http.Client
}

func NewGateway(cfg Config) Gateway {
	return &sslGateway{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// initResponse is the subset of the gateway's session response we consume.
type initResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (g *sslGateway) InitSession(ctx context.Context, req SessionRequest) (Session, error) {
	form := url.Values{}
	form.Set("store_id", g.cfg.StoreID)
	form.Set("store_passwd", g.cfg.StorePassword)
	form.Set("total_amount", req.Amount.String())
	form.Set("currency", "BDT")
	form.Set("tran_id", req.TransactionID)
	form.Set("success_url", g.cfg.SuccessURL)
	form.Set("fail_url", g.cfg.FailURL)
	form.Set("cancel_url", g.cfg.CancelURL)
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_email", req.CustomerEmail)
	form.Set("shipping_method", "NO")
	form.Set("product_name", "order")
	form.Set("product_category", "general")
	form.Set("product_profile", "general")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.PaymentAPI, strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body initResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Session{}, fmt.Errorf("decode response: %w", err)
	}

	if body.GatewayPageURL == "" {
		return Session{}, fmt.Errorf("gateway session rejected: %s", body.FailedReason)
	}

	return Session{GatewayPageURL: body.GatewayPageURL}, nil
}
