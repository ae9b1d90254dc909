// Package tradegate fetches the latest quotes exchanged on the Tradegate exchange.
//
// Tradegate serves a small JSON document per ISIN. The Client turns it into a
// raw quote block with the same layout as the one shown on quote pages, so
// that quotes from any source go through ptfs.ParseQuote.
package tradegate

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/ptfs"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Tradegate quote refresh endpoint.
const DefaultBaseURL = "https://www.tradegate.de/refresh.php"

// Currency of all Tradegate prices.
const Currency = "EUR"

// Client fetches quotes from Tradegate.
//
// It implements ptfs.Fetcher.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
	now     func() time.Time

	cacheDir string
	cacheTTL time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the quote endpoint.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient sets the http client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.client = h } }

// WithRate limits the number of requests per second.
func WithRate(perSecond float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1) }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option { return func(c *Client) { c.logger = l } }

// WithClock sets the clock used to timestamp quotes.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// WithCache caches responses on disk in dir for ttl. An empty dir means os.TempDir().
func WithCache(dir string, ttl time.Duration) Option {
	return func(c *Client) {
		if dir == "" {
			dir = os.TempDir()
		}
		c.cacheDir, c.cacheTTL = dir, ttl
	}
}

// New returns a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:  logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheTTL > 0 {
		base := c.client.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		cached := *c.client
		cached.Transport = &diskCache{base: base, dir: c.cacheDir, ttl: c.cacheTTL, now: c.now, logger: c.logger}
		c.client = &cached
	}
	return c
}

// Fetch implements ptfs.Fetcher. Tradegate does not depend on the asset class.
func (c *Client) Fetch(ctx context.Context, targets []ptfs.Target) map[ptfs.ISIN]string {
	res := make(map[ptfs.ISIN]string, len(targets))
	for _, t := range targets {
		log := c.logger.WithFields(logrus.Fields{"isin": t.ISIN, "class": t.Class, "source": "tradegate"})
		if err := c.limiter.Wait(ctx); err != nil {
			log.WithError(err).Warn("fetch cancelled")
			res[t.ISIN] = ""
			continue
		}
		price, err := c.Latest(ctx, t.ISIN)
		if err != nil {
			log.WithError(err).Warn("cannot fetch quote")
			res[t.ISIN] = ""
			continue
		}
		res[t.ISIN] = Render(price, c.now())
		log.WithField("price", price).Debug("fetched quote")
	}
	return res
}

// Render formats a price in EUR fetched at 'at' as a raw quote block.
//
// The feed carries no trade time, so the block is stamped with the fetch time.
func Render(price float64, at time.Time) string {
	return fmt.Sprintf("%s %s\nFetched from Tradegate %s",
		Currency, strconv.FormatFloat(price, 'f', -1, 64), at.UTC().Format(ptfs.QuoteTimeLayout))
}

// Latest returns the latest price exchanged on Tradegate for isin, in EUR.
func (c *Client) Latest(ctx context.Context, isin ptfs.ISIN) (float64, error) {
	addr := c.baseURL + "?isin=" + url.QueryEscape(string(isin))

	var jobj any
	if err := jwget(ctx, c.client, addr, &jobj); err != nil {
		return math.NaN(), fmt.Errorf("error retrieving %q: %w", isin, err)
	}

	// last is the last transaction, moves slower than the bid, but the bid can be 0.
	jval, err := jsonpath.Get("$.last", jobj)
	if err != nil {
		return math.NaN(), fmt.Errorf("cannot read value from %q: %w", isin, err)
	}
	if s, ok := jval.(string); ok && s == "./." {
		// trade gate show's empty last this way, use the bid instead
		c.logger.WithField("isin", isin).Debug("'last' is empty, falling back to 'bid'")
		if jval, err = jsonpath.Get("$.bid", jobj); err != nil {
			return math.NaN(), fmt.Errorf("cannot read bid from %q: %w", isin, err)
		}
	}

	val, err := asFloat(jval)
	if err != nil {
		return math.NaN(), fmt.Errorf("cannot read value from %q: %w", isin, err)
	}
	if val == 0 {
		// sometimes the bid is empty and returns 0
		return math.NaN(), fmt.Errorf("empty bid for %s no value to return", isin)
	}
	return val, nil
}

// asFloat reads a json number, or a string number that may use ',' as decimal separator.
func asFloat(jval any) (float64, error) {
	switch v := jval.(type) {
	case float64:
		return v, nil
	case string:
		s := strings.ReplaceAll(v, ",", ".")
		s = strings.ReplaceAll(s, " ", "")
		val, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), fmt.Errorf("value is an invalid string %q: %w", v, err)
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return math.NaN(), fmt.Errorf("value is not a number %q", v)
		}
		return val, nil
	default:
		return math.NaN(), fmt.Errorf("value is neither a float or string: %v", jval)
	}
}
