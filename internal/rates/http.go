package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultURL is the open exchange-rate feed; the base code is appended.
	DefaultURL = "https://open.er-api.com/v6/latest"
	// DefaultTTL is how long a cached table stays fresh.
	DefaultTTL = time.Hour

	cacheKeyPrefix = "vault_rates_"
)

// Cache is the slice of the local key-value store the provider needs.
type Cache interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProvider fetches rates from an open.er-api.com style endpoint and
// caches each base currency's table in the local store.
type HTTPProvider struct {
	url    string
	client HTTPClient
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures an HTTPProvider.
type Option func(*HTTPProvider)

// WithClient overrides the HTTP client.
func WithClient(c HTTPClient) Option {
	return func(p *HTTPProvider) { p.client = c }
}

// WithCache enables caching in the given store.
func WithCache(c Cache) Option {
	return func(p *HTTPProvider) { p.cache = c }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(p *HTTPProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *HTTPProvider) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *HTTPProvider) { p.log = log }
}

// NewHTTPProvider builds a provider for baseURL, or DefaultURL when empty.
func NewHTTPProvider(baseURL string, opts ...Option) *HTTPProvider {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	p := &HTTPProvider{
		url:    strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
		ttl:    DefaultTTL,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// cacheEntry mirrors what is stored under vault_rates_{base}.
type cacheEntry struct {
	Timestamp int64                      `json:"timestamp"` // unix millis
	Data      map[string]decimal.Decimal `json:"data"`
}

type feedResponse struct {
	Result string                     `json:"result"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

// Rates returns the table for base, served from cache while fresh.
func (p *HTTPProvider) Rates(ctx context.Context, base string) (Table, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return Table{}, fmt.Errorf("Rates: empty base currency")
	}

	cached, fresh, ok := p.cached(base)
	if ok && fresh {
		return cached, nil
	}

	rates, err := p.fetch(ctx, base)
	if err != nil {
		if ok {
			p.log.Warn().Err(err).Str("base", base).Msg("serving expired rates")
			return cached, nil
		}
		return Table{}, fmt.Errorf("Rates: %w", err)
	}

	p.store(base, rates)
	return Table{Base: base, Rates: rates}, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/"+base, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(feed.Rates) == 0 {
		return nil, fmt.Errorf("invalid data format: no rates for %s", base)
	}
	return feed.Rates, nil
}

// cached returns the stored table for base, if any, and whether it is
// still within the TTL.
func (p *HTTPProvider) cached(base string) (t Table, fresh, ok bool) {
	if p.cache == nil {
		return Table{}, false, false
	}
	raw, ok, err := p.cache.Get(cacheKeyPrefix + base)
	if err != nil {
		p.log.Warn().Err(err).Str("base", base).Msg("reading cached rates")
		return Table{}, false, false
	}
	if !ok {
		return Table{}, false, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || len(entry.Data) == 0 {
		p.log.Warn().Err(err).Str("base", base).Msg("discarding malformed cached rates")
		return Table{}, false, false
	}
	age := p.now().Sub(time.UnixMilli(entry.Timestamp))
	fresh = age >= 0 && age < p.ttl
	return Table{Base: base, Rates: entry.Data}, fresh, true
}

func (p *HTTPProvider) store(base string, rates map[string]decimal.Decimal) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(cacheEntry{Timestamp: p.now().UnixMilli(), Data: rates})
	if err != nil {
		p.log.Warn().Err(err).Msg("encoding rates for cache")
		return
	}
	if err := p.cache.Set(cacheKeyPrefix+base, raw); err != nil {
		p.log.Warn().Err(err).Str("base", base).Msg("caching rates")
	}
}
