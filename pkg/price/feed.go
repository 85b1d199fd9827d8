package price

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/robfig/cron/v3"

	"github.com/pvsizer/pvsizer/pkg/common"
	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/metrics"
	"github.com/pvsizer/pvsizer/pkg/types"
)

const ProviderFeed = "feed"

// Feed fetches the price from a remote JSON document and caches it.
type Feed struct {
	url      string
	schedule string
	ttl      time.Duration
	client   *http.Client

	mu        sync.Mutex
	lastFetch time.Time
	cached    types.Price
	cron      *cron.Cron
}

// feedDocument is the JSON document served by the price feed.
type feedDocument struct {
	PricePerKWH *float64 `json:"pricePerKwh"`
	Currency    string   `json:"currency"`
}

// configuredFeed sets up flags for the feed and returns the instance.
func configuredFeed() *Feed {
	f := &Feed{
		client: common.HTTPClient(10 * time.Second),
	}
	feedURL := lflag.String("price-feed-url", "", "URL of a JSON price feed ({\"pricePerKwh\": n, \"currency\": \"RON\"})")
	schedule := lflag.String("price-feed-refresh", "@every 1h", "Cron schedule for refreshing the price feed")
	ttl := lflag.Duration("price-feed-ttl", 2*time.Hour, "How long a fetched price is used before fetching again")

	lflag.Do(func() {
		f.url = *feedURL
		f.schedule = *schedule
		f.ttl = *ttl
		if f.url == "" {
			return
		}
		if err := f.Validate(); err != nil {
			panic(fmt.Sprintf("price feed validation failed: %v", err))
		}
	})

	return f
}

// NewFeed returns a feed provider for url.
func NewFeed(feedURL string, ttl time.Duration, client *http.Client) *Feed {
	if client == nil {
		client = common.HTTPClient(10 * time.Second)
	}
	return &Feed{url: feedURL, ttl: ttl, client: client}
}

// Validate ensures the configuration is valid.
func (f *Feed) Validate() error {
	if f.url == "" {
		return fmt.Errorf("price-feed-url is required")
	}
	if _, err := url.Parse(f.url); err != nil {
		return fmt.Errorf("failed to parse price feed url (%s): %w", f.url, err)
	}
	if f.schedule != "" {
		if _, err := cron.ParseStandard(f.schedule); err != nil {
			return fmt.Errorf("invalid price feed schedule (%s): %w", f.schedule, err)
		}
	}
	return nil
}

// GetCurrentPrice implements Provider. A cached price is returned until it
// is older than the ttl.
func (f *Feed) GetCurrentPrice(ctx context.Context) (types.Price, error) {
	f.mu.Lock()
	if !f.lastFetch.IsZero() && time.Since(f.lastFetch) < f.ttl {
		p := f.cached
		f.mu.Unlock()
		return p, nil
	}
	f.mu.Unlock()

	return f.Refresh(ctx)
}

// Refresh fetches the feed and replaces the cached price.
func (f *Feed) Refresh(ctx context.Context) (types.Price, error) {
	p, err := f.fetch(ctx)
	metrics.ObservePriceFetch(ProviderFeed, err)
	if err != nil {
		return types.Price{}, err
	}

	f.mu.Lock()
	f.cached = p
	f.lastFetch = p.FetchedAt
	f.mu.Unlock()
	return p, nil
}

func (f *Feed) fetch(ctx context.Context) (types.Price, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return types.Price{}, fmt.Errorf("failed to create request: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "fetching price feed", slog.String("url", f.url))

	resp, err := f.client.Do(req)
	if err != nil {
		return types.Price{}, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Price{}, fmt.Errorf("price feed returned status: %d", resp.StatusCode)
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return types.Price{}, fmt.Errorf("failed to decode price feed: %w", err)
	}
	if doc.PricePerKWH == nil {
		return types.Price{}, fmt.Errorf("price feed is missing pricePerKwh")
	}
	v := *doc.PricePerKWH
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return types.Price{}, fmt.Errorf("price feed returned an invalid price: %v", v)
	}

	p := types.Price{
		Provider:  ProviderFeed,
		PerKWH:    v,
		Currency:  doc.Currency,
		FetchedAt: time.Now(),
	}
	log.Ctx(ctx).InfoContext(ctx, "fetched price feed", slog.Float64("perKwh", p.PerKWH), slog.String("currency", p.Currency))
	return p, nil
}

// Start refreshes the feed once and then on the configured schedule until
// Stop is called. A failed first fetch is logged, not returned.
func (f *Feed) Start(ctx context.Context) error {
	if f.schedule == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(f.schedule, func() {
		if _, err := f.Refresh(ctx); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to refresh price feed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule price feed: %w", err)
	}

	if _, err := f.Refresh(ctx); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to fetch price feed", slog.Any("error", err))
	}

	f.mu.Lock()
	f.cron = c
	f.mu.Unlock()
	c.Start()
	return nil
}

// Stop stops the refresh schedule and waits for a running refresh.
func (f *Feed) Stop() {
	f.mu.Lock()
	c := f.cron
	f.cron = nil
	f.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
