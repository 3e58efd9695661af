package convert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_StaticFallback(t *testing.T) {
	c := NewCurrencyConverter(WithEndpoint(""))

	r, err := c.Convert(context.Background(), 100, "usd", "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", r.Code)
	assert.InDelta(t, 92.0, r.Amount, 1e-9)
}

func TestCurrency_StaticCrossRateThroughUSD(t *testing.T) {
	c := NewCurrencyConverter(WithEndpoint(""))

	// EUR→GBP via USD base: 0.79 / 0.92 per euro.
	r, err := c.Convert(context.Background(), 100, "euros", "pounds")
	require.NoError(t, err)
	assert.Equal(t, "GBP", r.Code)
	assert.InDelta(t, 85.87, r.Amount, 0.01)
}

func TestCurrency_LiveRateWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"EUR":0.5}}`))
	}))
	defer srv.Close()

	c := NewCurrencyConverter(
		WithEndpoint(srv.URL+"/latest/%s"),
		WithHTTPClient(srv.Client()),
	)
	r, err := c.Convert(context.Background(), 100, "usd", "eur")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, r.Amount, 1e-9)
}

func TestCurrency_LiveFailureFallsBackToStatic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCurrencyConverter(
		WithEndpoint(srv.URL+"/latest/%s"),
		WithHTTPClient(srv.Client()),
	)
	r, err := c.Convert(context.Background(), 100, "usd", "eur")
	require.NoError(t, err)
	assert.InDelta(t, 92.0, r.Amount, 1e-9)
}

func TestCurrency_RoundsToCents(t *testing.T) {
	c := NewCurrencyConverter(WithEndpoint(""), WithStaticRates(map[string]float64{"EUR": 0.333333}))

	r, err := c.Convert(context.Background(), 10, "usd", "eur")
	require.NoError(t, err)
	assert.Equal(t, 3.33, r.Amount)
}

func TestCurrency_SameCode(t *testing.T) {
	c := NewCurrencyConverter(WithEndpoint(""))

	r, err := c.Convert(context.Background(), 42.5, "dollars", "$")
	require.NoError(t, err)
	assert.Equal(t, "USD", r.Code)
	assert.Equal(t, 42.5, r.Amount)
}

func TestCurrency_UnknownNameIsNotApplicable(t *testing.T) {
	c := NewCurrencyConverter(WithEndpoint(""))

	_, err := c.Convert(context.Background(), 1, "beads", "usd")
	assert.ErrorIs(t, err, ErrNotApplicable)

	_, err = c.Convert(context.Background(), 1, "usd", "zzz")
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestCurrency_ISOCodePassthrough(t *testing.T) {
	c := NewCurrencyConverter(WithEndpoint(""))

	r, err := c.Convert(context.Background(), 1, "USD", "JPY")
	require.NoError(t, err)
	assert.Equal(t, "JPY", r.Code)
	assert.InDelta(t, 155.0, r.Amount, 1e-9)
}
