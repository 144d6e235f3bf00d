// internal/carrier/client.go
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shopcore-service/internal/domain/shipping"
	xerrors "shopcore-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// tokenTTL is slightly under the carrier's 10-day token validity so we
// re-login before the remote side expires us.
const tokenTTL = 9 * 24 * time.Hour

// TokenStore caches the carrier auth token between requests.
type TokenStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
}

type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// Client talks to the carrier aggregator's rate API (Shiprocket-style:
// token login, then a serviceability lookup per quote).
type Client struct {
	cfg    Config
	http   *http.Client
	tokens TokenStore
	logger *zap.Logger
}

func NewClient(cfg Config, tokens TokenStore, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		tokens: tokens,
		logger: logger,
	}
}

type RateRequest struct {
	PickupPostcode   string
	DeliveryPostcode string
	WeightKg         float64
	IsCOD            bool
	DeclaredValue    float64
}

type loginResponse struct {
	Token string `json:"token"`
}

type serviceabilityResponse struct {
	Status int `json:"status"`
	Data   struct {
		AvailableCourierCompanies []courierCompany `json:"available_courier_companies"`
	} `json:"data"`
}

type courierCompany struct {
	CourierCompanyID      int     `json:"courier_company_id"`
	CourierName           string  `json:"courier_name"`
	FreightCharge         float64 `json:"freight_charge"`
	CODCharges            float64 `json:"cod_charges"`
	OtherCharges          float64 `json:"other_charges"`
	Rate                  float64 `json:"rate"`
	ETD                   string  `json:"etd"`
	EstimatedDeliveryDays string  `json:"estimated_delivery_days"`
	IsSurface             bool    `json:"is_surface"`
}

// Rates fetches carrier quotes for a shipment. Exactly one attempt is made;
// retry and backoff belong to the caller. Any transport or auth failure is
// reported as ErrTransport, which callers must treat as "serviceability
// unknown", never "not serviceable".
func (c *Client) Rates(ctx context.Context, req RateRequest) ([]shipping.Rate, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPostcode)
	q.Set("delivery_postcode", req.DeliveryPostcode)
	q.Set("weight", strconv.FormatFloat(req.WeightKg, 'f', 2, 64))
	if req.IsCOD {
		q.Set("cod", "1")
	} else {
		q.Set("cod", "0")
	}
	q.Set("declared_value", strconv.FormatFloat(req.DeclaredValue, 'f', 2, 64))

	endpoint := c.cfg.BaseURL + "/courier/serviceability/?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build rate request: %v", xerrors.ErrTransport, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("carrier rate lookup failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", xerrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Checked successfully, nothing serviceable to this postcode.
		return []shipping.Rate{}, nil
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn("carrier rate lookup rejected", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: carrier returned status %d", xerrors.ErrTransport, resp.StatusCode)
	}

	var body serviceabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode rate response: %v", xerrors.ErrTransport, err)
	}

	rates := make([]shipping.Rate, 0, len(body.Data.AvailableCourierCompanies))
	for _, cc := range body.Data.AvailableCourierCompanies {
		rates = append(rates, normalizeRate(cc))
	}
	return rates, nil
}

// normalizeRate maps a carrier payload into the common rate shape.
func normalizeRate(cc courierCompany) shipping.Rate {
	total := cc.Rate
	if total == 0 {
		total = cc.FreightCharge + cc.CODCharges + cc.OtherCharges
	}
	return shipping.Rate{
		CarrierID:         cc.CourierCompanyID,
		CarrierName:       cc.CourierName,
		FreightCharge:     cc.FreightCharge,
		CODCharge:         cc.CODCharges,
		OtherCharges:      cc.OtherCharges,
		TotalCharge:       total,
		EstimatedDelivery: cc.ETD,
		EstimatedDays:     cc.EstimatedDeliveryDays,
		IsSurface:         cc.IsSurface,
		IsAir:             !cc.IsSurface,
	}
}

// token returns the cached auth token or logs in for a fresh one. An expired
// cached token surfaces as ErrTransport on the rate call rather than a second
// login attempt, keeping to one outbound call per quote.
func (c *Client) token(ctx context.Context) (string, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		c.logger.Warn("carrier token cache read failed", zap.Error(err))
	}
	if token != "" {
		return token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal login payload: %v", xerrors.ErrTransport, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build login request: %v", xerrors.ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("carrier login failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", xerrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("carrier login rejected", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: carrier login returned status %d", xerrors.ErrTransport, resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode login response: %v", xerrors.ErrTransport, err)
	}
	if body.Token == "" {
		return "", fmt.Errorf("%w: carrier login returned empty token", xerrors.ErrTransport)
	}

	if err := c.tokens.Set(ctx, body.Token, tokenTTL); err != nil {
		c.logger.Warn("carrier token cache write failed", zap.Error(err))
	}

	return body.Token, nil
}
