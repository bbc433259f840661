package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"listingscout/logger"
	"listingscout/pkg/errors"
)

// DefaultUserAgent is the browser identity presented to the site
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SessionConfig controls the headless browser a scrape runs in
type SessionConfig struct {
	Headless     bool
	NoSandbox    bool
	Stealth      bool
	BrowserBin   string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
}

// DefaultSessionConfig returns the browser settings used unless the
// caller overrides them
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Headless:     true,
		NoSandbox:    true,
		UserAgent:    DefaultUserAgent,
		WindowWidth:  1920,
		WindowHeight: 1080,
	}
}

// Session owns one headless Chromium instance and the single tab a
// scrape renders pages in. A session is created per scrape invocation
// and must be closed on every exit path; Close is idempotent.
type Session struct {
	browser   *rod.Browser
	launcher  *launcher.Launcher
	page      *rod.Page
	cfg       SessionConfig
	log       *logger.Logger
	closeOnce sync.Once
}

// NewSession launches the browser and connects to it. A failure here is
// the one fatal condition of a scrape: there is nothing to degrade to.
func NewSession(cfg SessionConfig) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Headless {
		l.Set(flags.Flag("disable-gpu"))
	}
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserAgent != "" {
		l.Set(flags.Flag("user-agent"), cfg.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.NewSessionStart("failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, errors.NewSessionStart("failed to connect to browser", err)
	}

	log := logger.ForSession()
	log.Info().
		Bool("headless", cfg.Headless).
		Bool("stealth", cfg.Stealth).
		Msg("Browser session started")

	return &Session{
		browser:  browser,
		launcher: l,
		cfg:      cfg,
		log:      log,
	}, nil
}

// activePage lazily opens the tab pages render in, injecting the stealth
// script before any navigation when enabled.
func (s *Session) activePage() (*rod.Page, error) {
	if s.page != nil {
		return s.page, nil
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if s.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			s.log.Warn().Err(evalErr).Msg("Stealth injection failed, proceeding without it")
		}
	}

	s.page = page
	return page, nil
}

// RenderHTML navigates to pageURL, waits the fixed settle delay, then
// polls for any marker selector until markerTimeout. It returns the
// rendered HTML and whether a marker confirmed the content; an expired
// marker wait does not fail the render.
func (s *Session) RenderHTML(ctx context.Context, pageURL string, wait time.Duration, markers []string, markerTimeout time.Duration) (string, bool, error) {
	page, err := s.activePage()
	if err != nil {
		return "", false, err
	}
	p := page.Context(ctx)

	if err := p.Navigate(pageURL); err != nil {
		return "", false, fmt.Errorf("navigation failed: %w", err)
	}

	if err := sleepCtx(ctx, wait); err != nil {
		return "", false, err
	}

	confirmed := s.waitForMarkers(p, markers, markerTimeout)
	if !confirmed {
		s.log.Warn().Str("url", pageURL).Msg("Timed out waiting for listing markers")
	}

	html, err := p.HTML()
	if err != nil {
		return "", confirmed, fmt.Errorf("failed to extract page HTML: %w", err)
	}
	return html, confirmed, nil
}

// waitForMarkers blocks until any marker selector appears or the timeout
// expires. Markers are raced as one comma-joined selector so the bound
// holds regardless of how many there are.
func (s *Session) waitForMarkers(p *rod.Page, markers []string, timeout time.Duration) bool {
	if len(markers) == 0 {
		return true
	}
	selector := strings.Join(markers, ", ")
	_, err := p.Timeout(timeout).Element(selector)
	return err == nil
}

// Close tears the browser down. Safe to call repeatedly and after
// partial failures; the process is killed even when the graceful close
// path errors.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.page != nil {
			_ = s.page.Close()
		}
		if err := s.browser.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Browser close failed, killing process")
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.log.Info().Msg("Browser session closed")
	})
}

// sleepCtx sleeps for d unless the context ends first
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
