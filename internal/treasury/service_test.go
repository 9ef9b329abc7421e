package treasury

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treasuryAddr = "0x6d6f646c70792f74727372790000000000000000"

func addrs() map[string]string {
	return map[string]string{"moonbeam": treasuryAddr, "moonriver": treasuryAddr}
}

func TestFetchReadsBothNetworks(t *testing.T) {
	moonbeam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/scan/account/token_list", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, treasuryAddr, body["address"])
		w.Write([]byte(`{"data":[
			{"symbol":"GLMR","balance":"1234567.891"},
			{"symbol":"xcUSDC","contract":"0xffffffff7d2b0b761af01ca8e25242976ac0ad7d","balance":"50000.5"}
		]}`))
	}))
	defer moonbeam.Close()
	moonriver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/scan/account", r.URL.Path)
		w.Write([]byte(`{"data":{"balance":"98765.4321"}}`))
	}))
	defer moonriver.Close()

	svc := NewService(addrs(), 5*time.Second, map[string]string{
		"moonbeam":  moonbeam.URL,
		"moonriver": moonriver.URL,
	})
	balances, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1,234,567.89", balances.GLMR)
	assert.Equal(t, "50,000.50", balances.USDC)
	assert.Equal(t, "98,765.43", balances.MOVR)
}

func TestFetchDegradesToNAOnFailure(t *testing.T) {
	moonbeam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer moonbeam.Close()
	moonriver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"balance":"100"}}`))
	}))
	defer moonriver.Close()

	svc := NewService(addrs(), 5*time.Second, map[string]string{
		"moonbeam":  moonbeam.URL,
		"moonriver": moonriver.URL,
	})
	balances, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "N/A", balances.GLMR)
	assert.Equal(t, "N/A", balances.USDC)
	assert.Equal(t, "100.00", balances.MOVR)
}

func TestFetchMatchesUSDCByContract(t *testing.T) {
	moonbeam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"symbol":"Wormhole USDC","contract":"0xFFFFFFFF7D2B0B761AF01CA8E25242976AC0AD7D","balance":"42"}
		]}`))
	}))
	defer moonbeam.Close()

	svc := NewService(addrs(), 5*time.Second, map[string]string{"moonbeam": moonbeam.URL})
	balances, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42.00", balances.USDC)
	assert.Equal(t, "N/A", balances.MOVR)
}

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "1,000.00", formatBalance("1000"))
	assert.Equal(t, "0.50", formatBalance("0.5"))
	assert.Equal(t, "N/A", formatBalance("not-a-number"))
}
