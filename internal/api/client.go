package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

type Client struct {
	client    *fasthttp.Client
	userAgent string
}

type Request struct {
	Method  string
	URL     string
	Header  map[string]string
	Cookies map[string]string
	Body    []byte
}

// Response is a single hop; redirects are returned as-is with Location set.
type Response struct {
	StatusCode int
	StatusText string
	Location   string
	SetCookies []*http.Cookie
	Body       []byte
}

func NewClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		userAgent: userAgent,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.SetRequestURI(r.URL)
	req.Header.SetMethod(method)
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}
	for k, v := range r.Cookies {
		req.Header.SetCookie(k, v)
	}
	if len(r.Body) > 0 {
		req.SetBody(r.Body)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("failed to %s %s: %w", method, r.URL, err)
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("failed to %s %s: %w", method, r.URL, err)
		}
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		StatusText: fasthttp.StatusMessage(resp.StatusCode()),
		Location:   string(resp.Header.Peek(fasthttp.HeaderLocation)),
		Body:       append([]byte(nil), resp.Body()...),
	}
	resp.Header.VisitAllCookie(func(_, raw []byte) {
		if cookie, err := http.ParseSetCookie(string(raw)); err == nil {
			out.SetCookies = append(out.SetCookies, cookie)
		}
	})
	return out, nil
}

// Decode unmarshals a JSON body into T.
func Decode[T any](body []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}
