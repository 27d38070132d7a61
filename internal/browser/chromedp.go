package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog"
)

const locationPollInterval = 100 * time.Millisecond

var jsNameRegex = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$][\w$]*)*$`)

// ChromeFactory opens one tab per session in a shared Chrome, started on first
// use. Close stops Chrome; the next session starts it again.
type ChromeFactory struct {
	opts   Options
	logger zerolog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

func NewChromeFactory(opts Options, logger zerolog.Logger) *ChromeFactory {
	return &ChromeFactory{
		opts:   opts,
		logger: logger.With().Str("component", "chromedp").Logger(),
	}
}

func (f *ChromeFactory) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
	)
	if f.opts.BlockImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if f.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.opts.UserAgent))
	}
	for name, value := range f.opts.Flags {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

func (f *ChromeFactory) browser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx != nil && f.browserCtx.Err() == nil {
		return f.browserCtx, nil
	}

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if f.opts.Backend == BackendRemote {
		f.logger.Info().Str("url", f.opts.RemoteURL).Msg("connecting to remote browser")
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), f.opts.RemoteURL)
	} else {
		f.logger.Info().Bool("headless", f.opts.Headless).Msg("starting local browser")
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), f.allocatorOptions()...)
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			f.logger.Debug().Msgf(format, args...)
		}),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	f.browserCtx = browserCtx
	f.cancelBrowser = func() {
		cancelBrowser()
		cancelAlloc()
	}
	return browserCtx, nil
}

func (f *ChromeFactory) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browserCtx, err := f.browser()
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return &chromeSession{
		tabCtx:  tabCtx,
		cancel:  cancel,
		timeout: f.opts.Timeout,
	}, nil
}

func (f *ChromeFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancelBrowser != nil {
		f.logger.Info().Msg("shutting down browser")
		f.cancelBrowser()
	}
	f.browserCtx = nil
	f.cancelBrowser = nil
	return nil
}

type chromeSession struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	closeOnce sync.Once
}

// run executes actions in the tab, bounded by both ctx and the call timeout.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := s.tabCtx.Err(); err != nil {
		return ErrClosed
	}
	runCtx, cancel := callContext(s.tabCtx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) (*Response, error) {
	if err := s.tabCtx.Err(); err != nil {
		return nil, ErrClosed
	}
	runCtx, cancel := callContext(s.tabCtx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	out := &Response{StatusCode: 200, URL: url}
	if resp != nil {
		out.StatusCode = int(resp.Status)
		out.URL = resp.URL
	}
	return out, nil
}

func (s *chromeSession) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := s.run(ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

func (s *chromeSession) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (s *chromeSession) Type(ctx context.Context, selector, text string) error {
	err := s.run(ctx,
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) PressEnter(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to press enter in %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) WaitForLocationChange(ctx context.Context, from string) error {
	if err := s.tabCtx.Err(); err != nil {
		return ErrClosed
	}
	waitCtx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	ticker := time.NewTicker(locationPollInterval)
	defer ticker.Stop()
	for {
		loc, err := s.Location(waitCtx)
		if err == nil && loc != from {
			return s.run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery))
		}
		select {
		case <-waitCtx.Done():
			return fmt.Errorf("location did not change from %s: %w", from, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

const fetchScript = `(async () => {
	const resp = await fetch(%s, {method: %s, headers: %s, body: %s, credentials: 'include'});
	return {status: resp.status, ok: resp.ok, statusText: resp.statusText, body: await resp.text()};
})()`

type fetchResult struct {
	Status     int    `json:"status"`
	OK         bool   `json:"ok"`
	StatusText string `json:"statusText"`
	Body       string `json:"body"`
}

func (s *chromeSession) Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	method := req.Method
	if method == "" {
		method = "GET"
	}
	header := req.Header
	if header == nil {
		header = map[string]string{}
	}
	var body any
	if req.Body != "" {
		body = req.Body
	}

	script := fmt.Sprintf(fetchScript, jsLiteral(req.URL), jsLiteral(method), jsLiteral(header), jsLiteral(body))

	var res fetchResult
	err := s.run(ctx, chromedp.Evaluate(script, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", req.URL, err)
	}
	return &FetchResponse{
		Status:     res.Status,
		OK:         res.OK,
		StatusText: res.StatusText,
		Body:       []byte(res.Body),
	}, nil
}

const jsValueScript = `(() => {
	try {
		const v = %s;
		return v === undefined || v === null ? '' : JSON.stringify(v);
	} catch (e) {
		return '';
	}
})()`

func (s *chromeSession) JSValue(ctx context.Context, name string, out any) error {
	if !jsNameRegex.MatchString(name) {
		return fmt.Errorf("invalid script variable name %q", name)
	}

	var raw string
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(jsValueScript, name), &raw)); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if raw == "" {
		return ErrUndefined
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

const computedStyleScript = `(() => {
	const el = document.querySelectorAll(%s)[%d];
	if (!el) return {found: false, value: ''};
	return {found: true, value: getComputedStyle(el).getPropertyValue(%s)};
})()`

func (s *chromeSession) ComputedStyle(ctx context.Context, selector string, index int, property string) (string, error) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	script := fmt.Sprintf(computedStyleScript, jsLiteral(selector), index, jsLiteral(property))
	if err := s.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return "", fmt.Errorf("failed to read style of %s: %w", selector, err)
	}
	if !res.Found {
		return "", ErrNoElement
	}
	return res.Value, nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

func jsLiteral(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
