package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
)

const (
	feedDefaultBaseURL = "https://api.justtcg.com/v1"
	feedDefaultTimeout = 10 * time.Second
)

// FeedClient fetches live market prices from the external price feed. It
// enforces a daily request budget so a background warm loop cannot burn the
// whole API quota.
type FeedClient struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	dailyLimit int

	// Rate limiting
	mu             sync.Mutex
	requestsToday  int
	lastRequestDay time.Time
}

// feedPriceResponse represents the API response for price queries
type feedPriceResponse struct {
	Success bool           `json:"success"`
	Data    []feedCardData `json:"data"`
	Error   string         `json:"error,omitempty"`
}

type feedCardData struct {
	CardID   string      `json:"card_id"`
	CardName string      `json:"card_name"`
	Variants []feedPrice `json:"variants"`
}

type feedPrice struct {
	Condition string  `json:"condition"`
	Printing  string  `json:"printing"`
	PriceUSD  float64 `json:"price"`
}

// NewFeedClient creates a price feed client. baseURL may be empty to use the
// default endpoint.
func NewFeedClient(apiKey, baseURL string, dailyLimit int) *FeedClient {
	if dailyLimit <= 0 {
		dailyLimit = 100 // Default free tier limit
	}
	if baseURL == "" {
		baseURL = feedDefaultBaseURL
	}

	metrics.FeedQuotaLimit.Set(float64(dailyLimit))

	return &FeedClient{
		client: &http.Client{
			Timeout: feedDefaultTimeout,
		},
		apiKey:     apiKey,
		baseURL:    baseURL,
		dailyLimit: dailyLimit,
	}
}

// checkRateLimit checks if we can make another request today.
// Returns true if the request can proceed, false if rate limited.
func (c *FeedClient) checkRateLimit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Reset counter if new day
	if c.lastRequestDay.Before(today) {
		c.requestsToday = 0
		c.lastRequestDay = today
	}

	if c.requestsToday >= c.dailyLimit {
		return false
	}

	c.requestsToday++
	metrics.FeedRequestsTotal.Inc()
	metrics.FeedQuotaRemaining.Set(float64(c.dailyLimit - c.requestsToday))
	return true
}

// RequestsRemaining returns the number of requests remaining today.
func (c *FeedClient) RequestsRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if c.lastRequestDay.Before(today) {
		return c.dailyLimit
	}

	remaining := c.dailyLimit - c.requestsToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DailyLimit returns the configured daily request budget.
func (c *FeedClient) DailyLimit() int {
	return c.dailyLimit
}

// ResetTime returns the next daily quota reset (midnight local time).
func (c *FeedClient) ResetTime() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}

// GetMarketPrice fetches the current market price for one card. Returns nil
// without error when the feed has no price for the card.
func (c *FeedClient) GetMarketPrice(ctx context.Context, cardID string) (*models.LivePrice, error) {
	if !c.checkRateLimit() {
		return nil, fmt.Errorf("price feed daily rate limit exceeded")
	}

	params := url.Values{}
	params.Set("id", cardID)

	reqURL := fmt.Sprintf("%s/cards/price?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed error: status %d", resp.StatusCode)
	}

	var priceResp feedPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&priceResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !priceResp.Success {
		if priceResp.Error != "" {
			return nil, fmt.Errorf("price feed error: %s", priceResp.Error)
		}
		return nil, fmt.Errorf("price feed returned unsuccessful response")
	}

	market := bestMarketPrice(priceResp.Data)
	if market <= 0 {
		return nil, nil
	}
	return &models.LivePrice{Market: market, ObservedAt: time.Now()}, nil
}

// bestMarketPrice picks the representative market price from feed variants:
// the NM Normal printing when present, otherwise the cheapest positive
// variant.
func bestMarketPrice(data []feedCardData) float64 {
	var fallback float64
	for _, card := range data {
		for _, v := range card.Variants {
			if v.PriceUSD <= 0 {
				continue
			}
			if v.Condition == "NM" && (v.Printing == "" || v.Printing == "Normal") {
				return v.PriceUSD
			}
			if fallback == 0 || v.PriceUSD < fallback {
				fallback = v.PriceUSD
			}
		}
	}
	return fallback
}
