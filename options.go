package calcforge

import (
	"net/http"
	"time"

	"github.com/chad-ld/calcforge/convert"
)

// DefaultCommentMarker is the reserved 3-character prefix that marks a
// line as a comment. Comment lines are never evaluated and bound
// statistical groups.
const DefaultCommentMarker = "###"

// DefaultReferenceFPS is the frame rate used when plain min/max/mean
// compare or average an all-timecode range.
const DefaultReferenceFPS = 30.0

// DefaultDebounce collapses bursts of edits into one evaluation pass.
const DefaultDebounce = 250 * time.Millisecond

// Options holds engine configuration.
type Options struct {
	commentMarker    string
	referenceFPS     float64
	debounce         time.Duration
	currencyEndpoint string
	currencyTimeout  time.Duration
	staticRates      map[string]float64
	httpClient       *http.Client
}

func defaultOptions() *Options {
	return &Options{
		commentMarker:    DefaultCommentMarker,
		referenceFPS:     DefaultReferenceFPS,
		debounce:         DefaultDebounce,
		currencyEndpoint: convert.DefaultRateEndpoint,
	}
}

// Option configures a Calculator.
type Option func(*Options)

// WithCommentMarker overrides the comment-line prefix.
func WithCommentMarker(marker string) Option {
	return func(o *Options) {
		if marker != "" {
			o.commentMarker = marker
		}
	}
}

// WithReferenceFPS sets the frame rate for timecode-aware min/max/mean.
func WithReferenceFPS(fps float64) Option {
	return func(o *Options) {
		if fps > 0 {
			o.referenceFPS = fps
		}
	}
}

// WithDebounce sets the edit-collapse interval used by the Engine.
func WithDebounce(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithCurrencyEndpoint overrides the live currency-rate endpoint
// (printf format with one %s for the base code). Empty disables live
// lookup so only the static table answers.
func WithCurrencyEndpoint(endpoint string) Option {
	return func(o *Options) { o.currencyEndpoint = endpoint }
}

// WithCurrencyTimeout bounds each live-rate request.
func WithCurrencyTimeout(d time.Duration) Option {
	return func(o *Options) { o.currencyTimeout = d }
}

// WithStaticRates merges overrides into the offline currency table
// (units per USD, keyed by ISO code).
func WithStaticRates(rates map[string]float64) Option {
	return func(o *Options) { o.staticRates = rates }
}

// WithHTTPClient substitutes the HTTP client used for currency-rate
// fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) { o.httpClient = client }
}
