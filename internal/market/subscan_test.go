package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(200, 5*time.Second, map[string]string{"moonbeam": srv.URL})
}

func TestRecentBlockSubtractsLag(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/block", r.URL.Path)
		_, _ = w.Write([]byte(`<a href="/block/5000123">5000123</a>`))
	}))

	block, err := svc.RecentBlock(context.Background(), "moonbeam")
	require.NoError(t, err)
	assert.Equal(t, int64(4999923), block)
}

func TestRecentBlockRejectsPageWithoutBlock(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))

	_, err := svc.RecentBlock(context.Background(), "moonbeam")
	assert.ErrorContains(t, err, "no block number")
}

func TestEMA30PriceParsesConverterPayload(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLMR", r.URL.Query().Get("from"))
		assert.Equal(t, "4999923", r.URL.Query().Get("time"))
		_, _ = w.Write([]byte(`{"price":"0.1052","ema30_average":"0.1034"}`))
	}))

	price, err := svc.EMA30Price(context.Background(), "moonbeam", "GLMR", 4999923)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.1034")))
}

func TestEMA30PriceFailsOnUnparseablePayload(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>rate limited</html>`))
	}))

	_, err := svc.EMA30Price(context.Background(), "moonbeam", "MOVR", 100)
	assert.ErrorContains(t, err, "no ema30 price")
}

func TestEMA30PriceFailsOnHTTPError(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := svc.EMA30Price(context.Background(), "moonbeam", "GLMR", 100)
	assert.ErrorContains(t, err, "unexpected status")
}

func TestUnknownNetworkRejected(t *testing.T) {
	svc := NewService(200, time.Second, map[string]string{})
	_, err := svc.RecentBlock(context.Background(), "kusama")
	assert.ErrorContains(t, err, "no explorer configured")
}
