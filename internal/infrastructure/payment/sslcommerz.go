package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

type HTTPGatewayConfig struct {
	URL       string
	StoreID   string
	StorePass string
	Timeout   time.Duration
}

// HTTPGateway talks to an SSLCommerz style session API: a form encoded POST
// answered with JSON carrying "status" and "GatewayPageURL".
type HTTPGateway struct {
	cfg     HTTPGatewayConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Session]
}

func NewHTTPGateway(cfg HTTPGatewayConfig, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	breaker := gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a refused session is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSessionRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("breaker", name).Warnf("circuit breaker %s -> %s", from, to)
		},
	})
	return &HTTPGateway{cfg: cfg, client: client, breaker: breaker}
}

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (g *HTTPGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	session, err := g.breaker.Execute(func() (*Session, error) {
		return g.createSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return session, err
}

func (g *HTTPGateway) createSession(ctx context.Context, req SessionRequest) (*Session, error) {
	form := url.Values{
		"store_id":         {g.cfg.StoreID},
		"store_passwd":     {g.cfg.StorePass},
		"total_amount":     {req.Amount.StringFixed(2)},
		"currency":         {req.Currency},
		"tran_id":          {req.TransactionID},
		"success_url":      {req.SuccessURL},
		"fail_url":         {req.FailURL},
		"cancel_url":       {req.CancelURL},
		"emi_option":       {"0"},
		"cus_name":         {req.Customer.Name},
		"cus_email":        {req.Customer.Email},
		"cus_phone":        {req.Customer.Phone},
		"cus_add1":         {req.Customer.Address},
		"cus_city":         {req.Customer.City},
		"cus_postcode":     {req.Customer.PostalCode},
		"cus_country":      {req.Customer.Country},
		"shipping_method":  {"NO"},
		"num_of_item":      {strconv.Itoa(req.ItemCount)},
		"product_name":     {"Clothing & Lifestyle Products"},
		"product_category": {"General"},
		"product_profile":  {"general"},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", idempotencyKey(req))

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var body sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSessionRejected, err)
	}
	if !strings.EqualFold(body.Status, "SUCCESS") || body.GatewayPageURL == "" {
		return nil, fmt.Errorf("%w: %s %s", ErrSessionRejected, body.Status, body.FailedReason)
	}
	return &Session{URL: body.GatewayPageURL, SessionKey: body.SessionKey}, nil
}

// idempotencyKey is stable for repeated requests of one transaction and amount.
func idempotencyKey(req SessionRequest) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(req.TransactionID+"|"+req.Amount.StringFixed(2))).String()
}
