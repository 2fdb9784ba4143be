// Package remote talks to another bookingdesk instance over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookingdesk/internal/model"
	"bookingdesk/internal/slots"

	"github.com/redis/go-redis/v9"
)

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected http status")

// Client implements the availability provider and booking submitter
// contracts against a remote /api.
type Client struct {
	baseURL    string
	apiKey     string
	schedule   slots.DaySchedule
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// SlotsResponse is the body of GET /api/slots.
type SlotsResponse struct {
	Date  string           `json:"date"`
	Slots []model.TimeSlot `json:"slots"`
}

// BookRequest is the body of POST /api/book.
type BookRequest struct {
	SlotID  string            `json:"slot_id"`
	Booking model.UserBooking `json:"booking"`
}

// BookResponse is the response of POST /api/book.
type BookResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewClient constructs a client. Responses are checked against schedule.
func NewClient(baseURL, apiKey string, schedule slots.DaySchedule) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		schedule:   schedule,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for slot lookups.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func slotsCacheKey(date string) string {
	return "slots:" + date
}

// FetchSlots returns the remote slots of date. A response that breaks the
// provider contract is an error.
func (c *Client) FetchSlots(ctx context.Context, date time.Time) ([]model.TimeSlot, error) {
	day := date.Format("2006-01-02")
	cacheKey := slotsCacheKey(day)
	var resp SlotsResponse

	if !c.readCache(ctx, cacheKey, &resp) {
		endpoint := fmt.Sprintf("%s/api/slots?date=%s", c.baseURL, url.QueryEscape(day))
		if err := c.doGet(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		if err := slots.CheckContract(date, resp.Slots, c.schedule); err != nil {
			return nil, fmt.Errorf("invalid slots for %s: %w", day, err)
		}
		c.writeCache(ctx, cacheKey, resp)
	}
	return resp.Slots, nil
}

// Submit posts a booking request. The cached slots of its date are dropped
// whatever the outcome.
func (c *Client) Submit(ctx context.Context, slotID string, b model.UserBooking) (bool, error) {
	defer c.invalidate(ctx, slotsCacheKey(b.Date.Format("2006-01-02")))

	endpoint := fmt.Sprintf("%s/api/book", c.baseURL)
	var resp BookResponse
	if err := c.doPost(ctx, endpoint, BookRequest{SlotID: slotID, Booking: b}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// HealthCheck checks if the remote instance is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) invalidate(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(context.WithoutCancel(ctx), key).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
