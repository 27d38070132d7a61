package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

var (
	ErrUndefined   = errors.New("script value is undefined")
	ErrUnsupported = errors.New("not supported by this browser backend")
	ErrNoElement   = errors.New("no element matches selector")
	ErrClosed      = errors.New("session is closed")
)

type Response struct {
	StatusCode int
	URL        string
}

type FetchRequest struct {
	Method string
	URL    string
	Header map[string]string
	Body   string
}

type FetchResponse struct {
	Status     int
	OK         bool
	StatusText string
	Body       []byte
}

// Session is one navigable page, owned by a single operation at a time.
type Session interface {
	Navigate(ctx context.Context, url string) (*Response, error)

	// Document returns a snapshot of the current DOM.
	Document(ctx context.Context) (*goquery.Document, error)

	Location(ctx context.Context) (string, error)
	Type(ctx context.Context, selector, text string) error
	PressEnter(ctx context.Context, selector string) error
	WaitForLocationChange(ctx context.Context, from string) error

	// Fetch issues a request from inside the page, sharing its cookies.
	Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error)

	// JSValue decodes a script scope variable into out. It returns
	// ErrUndefined while the variable is not set.
	JSValue(ctx context.Context, name string, out any) error

	ComputedStyle(ctx context.Context, selector string, index int, property string) (string, error)
	Close() error
}

type Factory interface {
	NewSession(ctx context.Context) (Session, error)
	Close() error
}

type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
	BackendStatic Backend = "static"
)

type Options struct {
	Backend Backend

	// websocket or http debugger url of a running Chrome, for BackendRemote
	RemoteURL string

	Headless bool

	// extra Chrome command line flags, applied over the defaults
	Flags map[string]any

	UserAgent   string
	BlockImages bool

	// per call timeout
	Timeout time.Duration
}

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendLocal, BackendRemote, BackendStatic:
		return b, nil
	case "":
		return BackendLocal, nil
	default:
		return "", fmt.Errorf("unknown browser backend %q", s)
	}
}

func NewFactory(opts Options, logger zerolog.Logger) (Factory, error) {
	switch opts.Backend {
	case BackendLocal, "":
		return NewChromeFactory(opts, logger), nil
	case BackendRemote:
		if opts.RemoteURL == "" {
			return nil, fmt.Errorf("remote browser backend requires a remote url")
		}
		return NewChromeFactory(opts, logger), nil
	case BackendStatic:
		return NewStaticFactory(opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown browser backend %q", opts.Backend)
	}
}

func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
