// Package crawler drives platform sources: it enumerates restaurant ids,
// fetches and caches raw payloads, normalizes them and keeps the catalog in
// sync with the qualification threshold.
package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/edgard/what2eat/internal/menu"
)

// ErrMalformedPayload is returned by Decode when a payload does not have the
// expected shape.
var ErrMalformedPayload = errors.New("malformed payload")

// Source is one delivery platform.
type Source interface {
	Platform() menu.Platform
	// Regions lists the listing units (cities) to enumerate.
	Regions(ctx context.Context) ([]string, error)
	// ListRestaurants returns the restaurant ids of one region.
	ListRestaurants(ctx context.Context, region string) ([]string, error)
	// FetchRestaurant returns the raw payload of one restaurant.
	FetchRestaurant(ctx context.Context, id string) ([]byte, error)
	// Decode flattens a raw payload. It does no network access.
	Decode(id string, raw []byte) (menu.RawRestaurant, error)
}

// ClientOptions configure the HTTP client shared by the sources.
type ClientOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Retries   int
}

// NewClient creates a resty client with browser-like defaults.
func NewClient(opts ClientOptions) *resty.Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept-language", "zh-TW,zh;q=0.9")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Retries > 0 {
		client.SetRetryCount(opts.Retries)
		client.SetRetryWaitTime(time.Second)
		client.AddRetryCondition(func(res *resty.Response, err error) bool {
			return err != nil || res.StatusCode() == 429 || res.StatusCode() >= 500
		})
	}
	return client
}
