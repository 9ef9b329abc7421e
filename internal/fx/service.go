package fx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"payoutor/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Rate is one EUR/USD quote with its provenance.
type Rate struct {
	Rate   decimal.Decimal `json:"rate"`
	AsOf   string          `json:"asOf,omitempty"`
	Source string          `json:"source"`
}

type provider struct {
	name string
	url  string
}

// Both providers answer {"rates":{"USD":<n>},"date":"YYYY-MM-DD"}.
var providers = []provider{
	{name: "ExchangerateHost", url: "https://api.exchangerate.host/latest?base=EUR&symbols=USD"},
	{name: "Frankfurter", url: "https://api.frankfurter.app/latest?from=EUR&to=USD"},
}

// Service fetches the EUR to USD exchange rate, falling back across
// providers and caching the last good quote for a short window.
type Service struct {
	client    *http.Client
	providers []provider
	ttl       time.Duration

	mu        sync.Mutex
	cached    *Rate
	fetchedAt time.Time
}

func NewService(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		client:    &http.Client{Timeout: timeout},
		providers: providers,
		ttl:       10 * time.Minute,
	}
}

// EURToUSD returns the current EUR/USD rate. Provider order is fixed;
// the first one that yields a parseable positive rate wins.
func (s *Service) EURToUSD(ctx context.Context) (*Rate, error) {
	s.mu.Lock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.ttl {
		rate := *s.cached
		s.mu.Unlock()
		return &rate, nil
	}
	s.mu.Unlock()

	var failures []string
	for _, p := range s.providers {
		rate, err := s.fetch(ctx, p)
		if err != nil {
			logger.Warnf("fx provider %s failed: %v", p.name, err)
			failures = append(failures, fmt.Sprintf("%s: %v", p.name, err))
			continue
		}
		s.mu.Lock()
		s.cached = rate
		s.fetchedAt = time.Now()
		s.mu.Unlock()
		return rate, nil
	}
	return nil, fmt.Errorf("failed to fetch EUR to USD rate: %s", strings.Join(failures, " | "))
}

func (s *Service) fetch(ctx context.Context, p provider) (*Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	usd := gjson.GetBytes(body, "rates.USD")
	if !usd.Exists() || usd.Float() <= 0 {
		return nil, fmt.Errorf("unexpected payload")
	}
	return &Rate{
		Rate:   decimal.NewFromFloat(usd.Float()),
		AsOf:   gjson.GetBytes(body, "date").String(),
		Source: p.name,
	}, nil
}
