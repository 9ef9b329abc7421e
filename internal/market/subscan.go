package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	blockPattern = regexp.MustCompile(`block/(\d+)`)
	emaPattern   = regexp.MustCompile(`"ema30_average":"([0-9.]+)"`)
)

// Service fetches price reference data from the networks' block explorers.
// It is stateless: every request hits the explorer again, no caching and no
// retries, so a priced call always reflects a fresh quote.
type Service struct {
	client   *http.Client
	blockLag int64
	subscans map[string]string
}

// NewService builds a market data fetcher. subscans maps a network name to
// its explorer base URL. blockLag is subtracted from the chain head so the
// price reference sits on settled recent history instead of the newest
// block.
func NewService(blockLag int64, timeout time.Duration, subscans map[string]string) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		client:   &http.Client{Timeout: timeout},
		blockLag: blockLag,
		subscans: subscans,
	}
}

// RecentBlock returns the network's head block minus the configured lag.
func (s *Service) RecentBlock(ctx context.Context, network string) (int64, error) {
	base, err := s.baseURL(network)
	if err != nil {
		return 0, err
	}
	body, err := s.get(ctx, base+"/block")
	if err != nil {
		return 0, fmt.Errorf("fetching %s block page: %w", network, err)
	}
	match := blockPattern.FindStringSubmatch(body)
	if match == nil {
		return 0, fmt.Errorf("no block number found on %s block page", network)
	}
	head, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s block number %q: %w", network, match[1], err)
	}
	return head - s.blockLag, nil
}

// EMA30Price returns the token's 30-period EMA price in USD as served by
// the explorer's price converter for the given block.
func (s *Service) EMA30Price(ctx context.Context, network, token string, block int64) (decimal.Decimal, error) {
	base, err := s.baseURL(network)
	if err != nil {
		return decimal.Zero, err
	}
	url := fmt.Sprintf("%s/tools/price_converter?value=1&type=block&from=%s&to=USD&time=%d", base, token, block)
	body, err := s.get(ctx, url)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching %s price for %s: %w", network, token, err)
	}
	match := emaPattern.FindStringSubmatch(body)
	if match == nil {
		return decimal.Zero, fmt.Errorf("no ema30 price for %s at block %d", token, block)
	}
	price, err := decimal.NewFromString(match[1])
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s price %q: %w", token, match[1], err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive ema30 price for %s at block %d", token, block)
	}
	return price, nil
}

func (s *Service) baseURL(network string) (string, error) {
	base, ok := s.subscans[network]
	if !ok || base == "" {
		return "", fmt.Errorf("no explorer configured for network %q", network)
	}
	return base, nil
}

func (s *Service) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
