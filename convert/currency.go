package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// DefaultRateEndpoint is the live-rate service. %s is the base currency
// code; the response carries a "rates" object keyed by code.
const DefaultRateEndpoint = "https://api.exchangerate-api.com/v4/latest/%s"

// DefaultRateTimeout bounds the only blocking I/O in an evaluation
// pass. On timeout the static table answers synchronously.
const DefaultRateTimeout = 3 * time.Second

// currencyCodes maps spoken currency names onto ISO codes. Unknown
// names are a fallthrough, not an error.
var currencyCodes = map[string]string{
	"usd": "USD", "dollar": "USD", "dollars": "USD", "$": "USD",
	"eur": "EUR", "euro": "EUR", "euros": "EUR", "€": "EUR",
	"gbp": "GBP", "pound": "GBP", "pounds": "GBP", "quid": "GBP", "£": "GBP",
	"jpy": "JPY", "yen": "JPY",
	"cad": "CAD",
	"aud": "AUD",
	"chf": "CHF", "franc": "CHF", "francs": "CHF",
	"cny": "CNY", "yuan": "CNY", "rmb": "CNY",
	"inr": "INR", "rupee": "INR", "rupees": "INR",
	"mxn": "MXN", "peso": "MXN", "pesos": "MXN",
	"krw": "KRW", "won": "KRW",
	"brl": "BRL", "real": "BRL", "reais": "BRL",
	"sek": "SEK", "nok": "NOK", "dkk": "DKK",
	"nzd": "NZD", "sgd": "SGD", "hkd": "HKD",
}

// staticRates is the offline fallback, expressed as units per USD.
// Conversions between two non-USD codes route through the USD base.
var staticRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.92,
	"GBP": 0.79,
	"JPY": 155.0,
	"CAD": 1.36,
	"AUD": 1.52,
	"CHF": 0.90,
	"CNY": 7.24,
	"INR": 83.3,
	"MXN": 17.1,
	"KRW": 1370.0,
	"BRL": 5.1,
	"SEK": 10.6,
	"NOK": 10.8,
	"DKK": 6.86,
	"NZD": 1.66,
	"SGD": 1.35,
	"HKD": 7.82,
}

// CurrencyResult is a converted amount with its ISO code label.
type CurrencyResult struct {
	Amount float64
	Code   string
}

// CurrencyConverter resolves currency names and converts amounts using
// a live rate service when reachable, falling back to the static table.
type CurrencyConverter struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	static   map[string]float64
}

// CurrencyOption configures a CurrencyConverter.
type CurrencyOption func(*CurrencyConverter)

// WithEndpoint overrides the live-rate endpoint (printf format with one
// %s for the base code). An empty endpoint disables live lookup.
func WithEndpoint(endpoint string) CurrencyOption {
	return func(c *CurrencyConverter) { c.endpoint = endpoint }
}

// WithTimeout bounds each live-rate request.
func WithTimeout(d time.Duration) CurrencyOption {
	return func(c *CurrencyConverter) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient substitutes the HTTP client used for rate fetches.
func WithHTTPClient(client *http.Client) CurrencyOption {
	return func(c *CurrencyConverter) { c.client = client }
}

// WithStaticRates merges overrides into the fallback table (units per
// USD, keyed by ISO code).
func WithStaticRates(rates map[string]float64) CurrencyOption {
	return func(c *CurrencyConverter) {
		for code, rate := range rates {
			if rate > 0 {
				c.static[strings.ToUpper(code)] = rate
			}
		}
	}
}

// NewCurrencyConverter builds a converter with the default endpoint,
// timeout and static table.
func NewCurrencyConverter(opts ...CurrencyOption) *CurrencyConverter {
	c := &CurrencyConverter{
		endpoint: DefaultRateEndpoint,
		timeout:  DefaultRateTimeout,
		client:   &http.Client{},
		static:   make(map[string]float64, len(staticRates)),
	}
	for code, rate := range staticRates {
		c.static[code] = rate
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert converts an amount between two spoken currency names or ISO
// codes. Unknown names return ErrNotApplicable. The result is rounded
// to cents.
func (c *CurrencyConverter) Convert(ctx context.Context, amount float64, from, to string) (CurrencyResult, error) {
	fromCode, ok := resolveCode(from)
	if !ok {
		return CurrencyResult{}, ErrNotApplicable
	}
	toCode, ok := resolveCode(to)
	if !ok {
		return CurrencyResult{}, ErrNotApplicable
	}

	rate, err := c.rate(ctx, fromCode, toCode)
	if err != nil {
		return CurrencyResult{}, err
	}
	return CurrencyResult{
		Amount: math.Round(amount*rate*100) / 100,
		Code:   toCode,
	}, nil
}

func resolveCode(name string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if code, ok := currencyCodes[normalized]; ok {
		return code, true
	}
	upper := strings.ToUpper(normalized)
	if _, ok := staticRates[upper]; ok && len(upper) == 3 {
		return upper, true
	}
	return "", false
}

// rate resolves from→to, trying the live service first and falling
// back to the static table on any failure. The static path routes
// through the USD base.
func (c *CurrencyConverter) rate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}
	if live, err := c.fetchRate(ctx, from, to); err == nil {
		return live, nil
	}
	return c.staticRate(from, to)
}

func (c *CurrencyConverter) staticRate(from, to string) (float64, error) {
	fromRate, okFrom := c.static[from]
	toRate, okTo := c.static[to]
	if !okFrom || !okTo || fromRate == 0 {
		return 0, ErrNotApplicable
	}
	return toRate / fromRate, nil
}

func (c *CurrencyConverter) fetchRate(ctx context.Context, from, to string) (float64, error) {
	if c.endpoint == "" {
		return 0, fmt.Errorf("live lookup disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf(c.endpoint, from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate service returned %s", resp.Status)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	rate, ok := payload.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rate service has no rate for %s", to)
	}
	return rate, nil
}
