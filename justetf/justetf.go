// Package justetf reads real time quotes from justETF profile pages with a headless browser.
//
// Quotes are rendered client side, so a plain http client does not see them.
// A Session owns a browser: open it with Open, and always Close it.
//
//	s, err := justetf.Open(ctx)
//	if err != nil { ... }
//	defer s.Close()
//	raw := s.Fetch(ctx, portfolio.Targets())
package justetf

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/etnz/ptfs"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the justETF english site.
const DefaultBaseURL = "https://www.justetf.com/en/"

const (
	quotesSelector  = "#realtime-quotes"
	consentSelector = "#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll"
)

// profilePaths maps asset classes to their profile page, relative to the base url.
// "%s" is the escaped ISIN.
var profilePaths = map[ptfs.AssetClass]string{
	ptfs.ETF:    "etf-profile.html?isin=%s",
	ptfs.Equity: "stock-profiles/%s",
}

// RegisterProfilePath sets the profile page of an asset class.
// It must be called during program initialization.
func RegisterProfilePath(c ptfs.AssetClass, path string) { profilePaths[c] = path }

// ProfileURL returns the profile page of a target.
func ProfileURL(base string, t ptfs.Target) (string, error) {
	path, ok := profilePaths[t.Class]
	if !ok {
		return "", fmt.Errorf("no justETF profile page for asset class %q", t.Class)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	rel, err := url.Parse(fmt.Sprintf(path, url.PathEscape(string(t.ISIN))))
	if err != nil {
		return "", fmt.Errorf("invalid profile path for %s: %w", t.ISIN, err)
	}
	return u.ResolveReference(rel).String(), nil
}

// config holds Session options.
type config struct {
	baseURL        string
	execPath       string
	headless       bool
	timeout        time.Duration
	consentTimeout time.Duration
	closeTimeout   time.Duration
	limiter        *rate.Limiter
	logger         *logrus.Logger
}

// Option configures a Session.
type Option func(*config)

// WithBaseURL overrides the site url.
func WithBaseURL(u string) Option { return func(c *config) { c.baseURL = u } }

// WithExecPath sets the chrome or chromium executable. By default it is searched in the PATH.
func WithExecPath(path string) Option { return func(c *config) { c.execPath = path } }

// WithHeadless controls whether the browser window is hidden (default true).
func WithHeadless(headless bool) Option { return func(c *config) { c.headless = headless } }

// WithTimeout sets the maximum time spent per identifier.
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithInterval sets the minimum delay between two page loads.
func WithInterval(d time.Duration) Option {
	return func(c *config) { c.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// WithCloseTimeout sets the maximum time Close waits for the browser to stop.
func WithCloseTimeout(d time.Duration) Option { return func(c *config) { c.closeTimeout = d } }

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option { return func(c *config) { c.logger = l } }

// Session is an open browser on justETF. It implements ptfs.Fetcher.
type Session struct {
	cfg     config
	browser context.Context // nil once closed
	started bool            // a browser process was allocated

	mu          sync.Mutex
	cancelAlloc context.CancelFunc
	cancel      context.CancelFunc
}

// Open starts a browser, loads the home page and accepts cookies.
//
// The caller must Close the Session, even when Fetch fails.
// ctx bounds the lifetime of the browser.
func Open(ctx context.Context, opts ...Option) (*Session, error) {
	cfg := config{
		baseURL:        DefaultBaseURL,
		headless:       true,
		timeout:        20 * time.Second,
		consentTimeout: 10 * time.Second,
		closeTimeout:   10 * time.Second,
		limiter:        rate.NewLimiter(rate.Every(time.Second), 1),
		logger:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", cfg.headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if cfg.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.execPath))
	}

	s := &Session{cfg: cfg}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browser, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(cfg.logger.Debugf))
	s.browser, s.cancel, s.cancelAlloc = browser, cancelBrowser, cancelAlloc

	if err := s.start(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// start loads the home page and dismisses the cookie banner.
func (s *Session) start() error {
	// The first Run allocates the browser. It must not run under a timeout
	// context, or the browser would be killed when it expires.
	if err := chromedp.Run(s.browser); err != nil {
		return fmt.Errorf("cannot start browser: %w", err)
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.browser, s.cfg.timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Navigate(s.cfg.baseURL)); err != nil {
		return fmt.Errorf("cannot open %q: %w", s.cfg.baseURL, err)
	}

	consent, cancelConsent := context.WithTimeout(s.browser, s.cfg.consentTimeout)
	defer cancelConsent()
	err := chromedp.Run(consent,
		chromedp.WaitVisible(consentSelector, chromedp.ByQuery),
		chromedp.Click(consentSelector, chromedp.ByQuery),
	)
	if err != nil {
		// The banner is not always shown, quotes are readable anyway.
		s.cfg.logger.WithError(err).Info("no cookie consent banner accepted")
	}
	return nil
}

// Close stops the browser. It is safe to call Close more than once.
//
// Close returns after the close timeout even if the browser does not stop.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return nil
	}
	browser, started, cancel, cancelAlloc := s.browser, s.started, s.cancel, s.cancelAlloc
	s.browser, s.cancel, s.cancelAlloc = nil, nil, nil

	done := make(chan error, 1)
	go func() {
		if !started {
			// The browser context would wait for a browser that never
			// existed: releasing its parent allocator is enough.
			cancelAlloc()
			done <- nil
			return
		}
		// Cancel asks the browser to shutdown gracefully before killing it.
		err := chromedp.Cancel(browser)
		cancel()
		cancelAlloc()
		done <- err
	}()
	select {
	case err := <-done:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		return err
	case <-time.After(s.cfg.closeTimeout):
		return fmt.Errorf("browser did not stop within %v", s.cfg.closeTimeout)
	}
}

// Fetch implements ptfs.Fetcher.
//
// Identifiers are fetched one at a time. A failure for one identifier, a
// timeout included, yields an empty string for that identifier only.
func (s *Session) Fetch(ctx context.Context, targets []ptfs.Target) map[ptfs.ISIN]string {
	res := make(map[ptfs.ISIN]string, len(targets))
	for _, t := range targets {
		log := s.cfg.logger.WithFields(logrus.Fields{"isin": t.ISIN, "class": t.Class, "source": "justetf"})
		txt, err := s.fetchOne(ctx, t)
		if err != nil {
			log.WithError(err).Warn("cannot fetch quote")
			res[t.ISIN] = ""
			continue
		}
		log.Debug("fetched quote")
		res[t.ISIN] = txt
	}
	return res
}

// fetchOne reads the quote block of a single target.
func (s *Session) fetchOne(ctx context.Context, t ptfs.Target) (txt string, err error) {
	defer func() {
		if r := recover(); r != nil {
			txt, err = "", fmt.Errorf("panic while fetching %s: %v", t.ISIN, r)
		}
	}()

	s.mu.Lock()
	browser := s.browser
	s.mu.Unlock()
	if browser == nil {
		return "", errors.New("session is closed")
	}
	addr, err := ProfileURL(s.cfg.baseURL, t)
	if err != nil {
		return "", err
	}
	if err := s.cfg.limiter.Wait(ctx); err != nil {
		return "", err
	}

	// The page load is bound by both the browser and the caller's context.
	tctx, cancel := context.WithTimeout(browser, s.cfg.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err = chromedp.Run(tctx,
		chromedp.Navigate(addr),
		chromedp.WaitVisible(quotesSelector, chromedp.ByQuery),
		chromedp.Text(quotesSelector, &txt, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("cannot read quotes from %q: %w", addr, err)
	}
	return txt, nil
}
