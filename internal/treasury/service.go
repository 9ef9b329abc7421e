package treasury

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"payoutor/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// xcUSDC multilocation contract on Moonbeam.
const usdcContract = "0xffffffff7d2b0b761af01ca8e25242976ac0ad7d"

// Balances holds the treasury pot per asset, formatted for display.
// "N/A" marks an asset the explorer could not report.
type Balances struct {
	GLMR string `json:"glmr"`
	MOVR string `json:"movr"`
	USDC string `json:"usdc"`
}

// Service reads the treasury pallet account balances off the explorers.
type Service struct {
	client    *http.Client
	addresses map[string]string
	subscans  map[string]string
}

// NewService takes per-network pallet-derived treasury addresses and a
// network name to subscan base URL map. The addresses are identical on
// both networks today but the pallet id is chain configuration.
func NewService(addresses map[string]string, timeout time.Duration, subscans map[string]string) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		client:    &http.Client{Timeout: timeout},
		addresses: addresses,
		subscans:  subscans,
	}
}

// Fetch queries both explorers concurrently. A failed leg degrades to
// "N/A" rather than failing the whole read; this is display data only.
func (s *Service) Fetch(ctx context.Context) (*Balances, error) {
	out := &Balances{GLMR: "N/A", MOVR: "N/A", USDC: "N/A"}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		glmr, usdc, err := s.moonbeamTokens(gctx)
		if err != nil {
			logger.Warnf("treasury balances: moonbeam token list: %v", err)
			return nil
		}
		out.GLMR, out.USDC = glmr, usdc
		return nil
	})
	group.Go(func() error {
		movr, err := s.accountBalance(gctx, "moonriver")
		if err != nil {
			logger.Warnf("treasury balances: moonriver account: %v", err)
			return nil
		}
		out.MOVR = movr
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// moonbeamTokens pulls the token list and picks out the native GLMR row
// and the xcUSDC row, matched by contract first and symbol second.
func (s *Service) moonbeamTokens(ctx context.Context) (glmr, usdc string, err error) {
	body, err := s.post(ctx, "moonbeam", "/api/scan/account/token_list")
	if err != nil {
		return "", "", err
	}
	glmr, usdc = "N/A", "N/A"
	for _, token := range gjson.GetBytes(body, "data").Array() {
		symbol := token.Get("symbol").String()
		balance := token.Get("balance").String()
		switch {
		case symbol == "GLMR":
			glmr = formatBalance(balance)
		case strings.EqualFold(token.Get("contract").String(), usdcContract),
			symbol == "USDC", symbol == "xcUSDC":
			usdc = formatBalance(balance)
		}
	}
	return glmr, usdc, nil
}

func (s *Service) accountBalance(ctx context.Context, network string) (string, error) {
	body, err := s.post(ctx, network, "/api/scan/account")
	if err != nil {
		return "", err
	}
	balance := gjson.GetBytes(body, "data.balance")
	if !balance.Exists() {
		return "", fmt.Errorf("no balance in response")
	}
	return formatBalance(balance.String()), nil
}

func (s *Service) post(ctx context.Context, network, path string) ([]byte, error) {
	base, ok := s.subscans[network]
	if !ok {
		return nil, fmt.Errorf("no explorer configured for %s", network)
	}
	address, ok := s.addresses[network]
	if !ok {
		return nil, fmt.Errorf("no treasury address configured for %s", network)
	}
	payload := fmt.Sprintf(`{"address":%q}`, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewBufferString(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s%s", resp.StatusCode, base, path)
	}
	return io.ReadAll(resp.Body)
}

// formatBalance renders a raw balance string with thousands separators
// and two decimal places, or "N/A" when it does not parse.
func formatBalance(raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "N/A"
	}
	fixed := d.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}
	dot := strings.IndexByte(fixed, '.')
	intPart, fracPart := fixed[:dot], fixed[dot:]
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)
	out := strings.Join(groups, ",") + fracPart
	if neg {
		return "-" + out
	}
	return out
}
