package scraper

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"csgostats-scraper/internal/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2021, time.October, 12, 12, 0, 0, 0, time.UTC)

type fakePage struct {
	status  int
	fixture string
}

// fakeSite stands in for csgostats.gg behind a browser. Pages are served
// from testdata by exact URL; anything else is a 404.
type fakeSite struct {
	t *testing.T

	mu        sync.Mutex
	pages     map[string]fakePage
	searches  map[string]string
	jsValues  map[string]string
	jsDelay   int
	noScript  bool
	fetch     func(req browser.FetchRequest) *browser.FetchResponse
	fetched   []browser.FetchRequest
	opened    int
	closed    int
	shutdown  int
	jsCalls   int
	delay     time.Duration
	active    int
	maxActive int
}

func newFakeSite(t *testing.T) *fakeSite {
	return &fakeSite{
		t:        t,
		pages:    map[string]fakePage{},
		searches: map[string]string{},
		jsValues: map[string]string{},
	}
}

func (f *fakeSite) page(url, fixture string) *fakeSite {
	f.pages[url] = fakePage{status: 200, fixture: fixture}
	return f
}

func (f *fakeSite) status(url string, status int, fixture string) *fakeSite {
	f.pages[url] = fakePage{status: status, fixture: fixture}
	return f
}

func (f *fakeSite) NewSession(ctx context.Context) (browser.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	return &fakeSession{site: f}, nil
}

func (f *fakeSite) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown++
	return nil
}

func (f *fakeSite) counts() (opened, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.closed
}

func (f *fakeSite) requests() []browser.FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]browser.FetchRequest(nil), f.fetched...)
}

func (f *fakeSite) load(name string) string {
	if name == "" {
		return "<html><body>Not Found</body></html>"
	}
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(f.t, err)
	return string(b)
}

type fakeSession struct {
	site     *fakeSite
	location string
	body     string
	typed    string
	closed   bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) (*browser.Response, error) {
	if s.site.delay > 0 {
		select {
		case <-time.After(s.site.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.site.mu.Lock()
	p, ok := s.site.pages[url]
	s.site.mu.Unlock()
	if !ok {
		p = fakePage{status: 404}
	}
	s.location = url
	s.body = s.site.load(p.fixture)
	return &browser.Response{StatusCode: p.status, URL: url}, nil
}

func (s *fakeSession) Document(ctx context.Context) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(s.body))
}

func (s *fakeSession) Location(ctx context.Context) (string, error) {
	return s.location, nil
}

func (s *fakeSession) Type(ctx context.Context, selector, text string) error {
	s.typed += text
	return nil
}

func (s *fakeSession) PressEnter(ctx context.Context, selector string) error {
	s.site.mu.Lock()
	target, ok := s.site.searches[s.typed]
	s.site.mu.Unlock()
	if !ok {
		target = "https://csgostats.gg/search?q=" + s.typed
	}
	_, err := s.Navigate(ctx, target)
	return err
}

func (s *fakeSession) WaitForLocationChange(ctx context.Context, from string) error {
	return nil
}

func (s *fakeSession) Fetch(ctx context.Context, req browser.FetchRequest) (*browser.FetchResponse, error) {
	s.site.mu.Lock()
	s.site.fetched = append(s.site.fetched, req)
	fetch := s.site.fetch
	s.site.mu.Unlock()
	if fetch == nil {
		return &browser.FetchResponse{Status: 404, StatusText: "Not Found"}, nil
	}
	return fetch(req), nil
}

func (s *fakeSession) JSValue(ctx context.Context, name string, out any) error {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	if s.site.noScript {
		return browser.ErrUnsupported
	}
	s.site.jsCalls++
	if s.site.jsCalls <= s.site.jsDelay {
		return browser.ErrUndefined
	}
	raw, ok := s.site.jsValues[s.location]
	if !ok {
		return browser.ErrUndefined
	}
	return json.Unmarshal([]byte(raw), out)
}

var inlineBackgroundRegex = regexp.MustCompile(`background-image:\s*([^;]+)`)

func (s *fakeSession) ComputedStyle(ctx context.Context, selector string, index int, property string) (string, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return "", err
	}
	sel := doc.Find(selector).Eq(index)
	if sel.Length() == 0 {
		return "", browser.ErrNoElement
	}
	if m := inlineBackgroundRegex.FindStringSubmatch(sel.AttrOr("style", "")); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	return "none", nil
}

func (s *fakeSession) Close() error {
	s.site.mu.Lock()
	defer s.site.mu.Unlock()
	s.site.closed++
	s.site.active--
	s.closed = true
	return nil
}

func newTestEnv(site *fakeSite) *env {
	return &env{
		sessions:       site,
		markup:         MarkupAuto,
		graphSource:    GraphSourceAuto,
		rawDataTimeout: time.Second,
		rawDataPoll:    5 * time.Millisecond,
		logger:         zerolog.Nop(),
		now:            func() time.Time { return testNow },
	}
}

// requireBalanced checks that every session opened was closed exactly once.
func requireBalanced(t *testing.T, site *fakeSite, sessions int) {
	t.Helper()
	opened, closed := site.counts()
	require.Equal(t, sessions, opened, "sessions opened")
	require.Equal(t, opened, closed, "sessions closed")
}
