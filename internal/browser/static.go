package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"csgostats-scraper/internal/api"
	"csgostats-scraper/internal/constants"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// StaticFactory serves sessions over plain HTTP. Pages are not rendered, so
// script variables are unavailable and styles come from inline attributes.
type StaticFactory struct {
	client *api.Client
	opts   Options
	logger zerolog.Logger
}

func NewStaticFactory(opts Options, logger zerolog.Logger) *StaticFactory {
	return &StaticFactory{
		client: api.NewClient(opts.UserAgent, opts.Timeout),
		opts:   opts,
		logger: logger.With().Str("component", "static").Logger(),
	}
}

func (f *StaticFactory) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &staticSession{
		client: f.client,
		opts:   f.opts,
		logger: f.logger,
		jar:    jar,
		typed:  map[string]string{},
	}, nil
}

func (f *StaticFactory) Close() error {
	return nil
}

type staticSession struct {
	client *api.Client
	opts   Options
	logger zerolog.Logger

	// cookies are scoped by host and path
	jar *cookiejar.Jar

	mu       sync.Mutex
	typed    map[string]string
	location string
	body     []byte
	closed   bool
}

func (s *staticSession) Navigate(ctx context.Context, target string) (*Response, error) {
	return s.load(ctx, api.Request{URL: target})
}

// load performs req and follows redirects, keeping cookies along the way.
func (s *staticSession) load(ctx context.Context, req api.Request) (*Response, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	ctx, cancel := callContext(ctx, s.opts.Timeout)
	defer cancel()

	for i := 0; i <= constants.MaxRedirects; i++ {
		req.Cookies = s.cookieHeader(req.URL)
		resp, err := s.client.Do(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to navigate to %s: %w", req.URL, err)
		}
		s.storeCookies(req.URL, resp)

		if resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Location != "" {
			next, err := resolve(req.URL, resp.Location)
			if err != nil {
				return nil, err
			}
			s.logger.Debug().Str("from", req.URL).Str("to", next).Msg("following redirect")
			req = api.Request{URL: next}
			continue
		}

		s.mu.Lock()
		s.location = req.URL
		s.body = resp.Body
		s.typed = map[string]string{}
		s.mu.Unlock()
		return &Response{StatusCode: resp.StatusCode, URL: req.URL}, nil
	}
	return nil, fmt.Errorf("failed to navigate to %s: too many redirects", req.URL)
}

func (s *staticSession) Document(ctx context.Context) (*goquery.Document, error) {
	s.mu.Lock()
	body := s.body
	s.mu.Unlock()
	if body == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

func (s *staticSession) Location(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location, nil
}

func (s *staticSession) Type(ctx context.Context, selector, text string) error {
	doc, err := s.Document(ctx)
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("failed to type into %s: %w", selector, ErrNoElement)
	}
	s.mu.Lock()
	s.typed[selector] = s.typed[selector] + text
	s.mu.Unlock()
	return nil
}

// PressEnter submits the form enclosing selector with the typed values.
func (s *staticSession) PressEnter(ctx context.Context, selector string) error {
	doc, err := s.Document(ctx)
	if err != nil {
		return err
	}
	input := doc.Find(selector).First()
	if input.Length() == 0 {
		return fmt.Errorf("failed to press enter in %s: %w", selector, ErrNoElement)
	}
	form := input.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("failed to press enter in %s: %w", selector, ErrUnsupported)
	}

	s.mu.Lock()
	typed := s.typed[selector]
	location := s.location
	s.mu.Unlock()

	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, field *goquery.Selection) {
		name, _ := field.Attr("name")
		if t, _ := field.Attr("type"); t == "submit" || t == "button" || t == "image" {
			return
		}
		value, _ := field.Attr("value")
		values.Add(name, value)
	})
	if name, ok := input.Attr("name"); ok {
		values.Set(name, typed)
	}

	action, _ := form.Attr("action")
	target, err := resolve(location, action)
	if err != nil {
		return err
	}

	method, _ := form.Attr("method")
	req := api.Request{URL: target}
	if strings.EqualFold(method, "post") {
		req.Method = "POST"
		req.Header = map[string]string{"Content-Type": api.FormContentType}
		req.Body = []byte(values.Encode())
	} else {
		u, err := url.Parse(target)
		if err != nil {
			return fmt.Errorf("failed to parse form action %s: %w", target, err)
		}
		u.RawQuery = values.Encode()
		req.URL = u.String()
	}

	s.logger.Debug().Str("url", req.URL).Str("method", req.Method).Msg("submitting form")
	_, err = s.load(ctx, req)
	return err
}

// WaitForLocationChange returns at once; form submission already completed
// the navigation.
func (s *staticSession) WaitForLocationChange(ctx context.Context, from string) error {
	if s.isClosed() {
		return ErrClosed
	}
	return nil
}

func (s *staticSession) Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	ctx, cancel := callContext(ctx, s.opts.Timeout)
	defer cancel()

	s.mu.Lock()
	location := s.location
	s.mu.Unlock()
	target, err := resolve(location, req.URL)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, api.Request{
		Method:  strings.ToUpper(req.Method),
		URL:     target,
		Header:  req.Header,
		Cookies: s.cookieHeader(target),
		Body:    []byte(req.Body),
	})
	if err != nil {
		return nil, err
	}
	s.storeCookies(target, resp)

	return &FetchResponse{
		Status:     resp.StatusCode,
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusText: resp.StatusText,
		Body:       resp.Body,
	}, nil
}

func (s *staticSession) JSValue(ctx context.Context, name string, out any) error {
	return ErrUnsupported
}

// ComputedStyle only sees declarations of the inline style attribute.
func (s *staticSession) ComputedStyle(ctx context.Context, selector string, index int, property string) (string, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return "", err
	}
	el := doc.Find(selector).Eq(index)
	if el.Length() == 0 {
		return "", ErrNoElement
	}
	style, _ := el.Attr("style")
	return inlineStyle(style, property), nil
}

func (s *staticSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.body = nil
	return nil
}

func (s *staticSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// cookieHeader returns the cookies the jar holds for target.
func (s *staticSession) cookieHeader(target string) map[string]string {
	u, err := url.Parse(target)
	if err != nil {
		return nil
	}
	cookies := s.jar.Cookies(u)
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out
}

func (s *staticSession) storeCookies(target string, resp *api.Response) {
	if len(resp.SetCookies) == 0 {
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", target).Msg("dropping cookies of unparsable url")
		return
	}
	s.jar.SetCookies(u, resp.SetCookies)
}

func inlineStyle(style, property string) string {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func resolve(base, ref string) (string, error) {
	if base == "" {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %s: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %s: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}
