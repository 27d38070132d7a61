package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"csgostats-scraper/internal/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// env carries everything an extraction operation depends on.
type env struct {
	sessions       browser.Factory
	markup         MarkupVersion
	graphSource    GraphSource
	rawDataTimeout time.Duration
	rawDataPoll    time.Duration
	logger         zerolog.Logger
	now            func() time.Time
}

// withSession runs fn with a fresh session and always releases it.
func withSession[T any](ctx context.Context, e *env, fn func(browser.Session) (T, error)) (T, error) {
	var zero T
	session, err := e.sessions.NewSession(ctx)
	if err != nil {
		return zero, fmt.Errorf("failed to create browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("failed to close browser session")
		}
	}()
	return fn(session)
}

// page is a navigated URL with a snapshot of its DOM.
type page struct {
	url string
	doc *goquery.Document
}

// resolve turns a possibly relative link of the page into an absolute URL.
func (p *page) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(p.url)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// open navigates to target and fails on anything but a 200.
func open(ctx context.Context, e *env, s browser.Session, target string) (*page, error) {
	e.logger.Debug().Str("url", target).Msg("navigating")
	resp, err := s.Navigate(ctx, target)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
			if doc, err := s.Document(ctx); err == nil {
				statusErr.BotProtection = isChallenge(doc)
			}
		}
		e.logger.Debug().Str("url", target).Int("status", resp.StatusCode).Bool("bot_protection", statusErr.BotProtection).Msg("non-200 response")
		return nil, statusErr
	}

	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	pageURL := resp.URL
	if pageURL == "" {
		pageURL = target
	}
	return &page{url: pageURL, doc: doc}, nil
}

// warmUp loads a page only to pick up its cookies. Failures are logged.
func warmUp(ctx context.Context, e *env, s browser.Session, target string) error {
	e.logger.Debug().Str("url", target).Msg("navigating")
	resp, err := s.Navigate(ctx, target)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		e.logger.Warn().Str("url", target).Int("status", resp.StatusCode).Msg("site root returned a non-200 response")
	}
	return nil
}

var challengeMarkers = []string{
	"just a moment...",
	"checking your browser",
	"cf-browser-verification",
	"challenge-platform",
	"cf-chl",
	"attention required! | cloudflare",
	"verify you are human",
}

func isChallenge(doc *goquery.Document) bool {
	html, err := doc.Html()
	if err != nil {
		return false
	}
	html = strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

func text(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.First().Text()), true
}

func attr(sel *goquery.Selection, name string) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Attr(name)
}
