package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"csgostats-scraper/internal/browser"
	"csgostats-scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
)

// GraphSource selects where the per-match graph data is read from.
type GraphSource string

const (
	// script variable when the backend evaluates script, embedded otherwise
	GraphSourceAuto GraphSource = "auto"

	GraphSourceScriptVariable GraphSource = "script"
	GraphSourceEmbeddedScript GraphSource = "embedded"
)

func ParseGraphSource(s string) (GraphSource, error) {
	switch v := GraphSource(s); v {
	case GraphSourceAuto, GraphSourceScriptVariable, GraphSourceEmbeddedScript:
		return v, nil
	case "":
		return GraphSourceAuto, nil
	default:
		return "", fmt.Errorf("unknown graph source %q", s)
	}
}

const rawDataVariable = "raw_data"

var (
	rawDataRegex      = regexp.MustCompile(`(?s)\braw_data\s*=\s*(\[.*?\])\s*;`)
	errRawDataMissing = errors.New("raw_data is not defined yet")
)

// readRawData polls for the graph data until it is available or the poll
// timeout passes. The first attempt uses the already captured page.
func readRawData(ctx context.Context, e *env, s browser.Session, p *page) ([]domain.GraphsRawDatum, error) {
	pollCtx, cancel := context.WithTimeout(ctx, e.rawDataTimeout)
	defer cancel()

	source := e.graphSource
	first := true
	var lastErr error

	op := func() ([]domain.GraphsRawDatum, error) {
		var (
			data []domain.GraphsRawDatum
			err  error
		)
		if source != GraphSourceEmbeddedScript {
			data, err = rawDataFromVariable(pollCtx, s)
			if errors.Is(err, browser.ErrUnsupported) && source == GraphSourceAuto {
				e.logger.Debug().Msg("backend cannot evaluate script, reading raw_data from page source")
				source = GraphSourceEmbeddedScript
			}
		}
		if source == GraphSourceEmbeddedScript {
			current := p
			if !first {
				snapshot, snapErr := s.Document(pollCtx)
				if snapErr != nil {
					lastErr = snapErr
					return nil, snapErr
				}
				current = &page{url: p.url, doc: snapshot}
			}
			data, err = rawDataFromScript(current)
		}
		first = false
		lastErr = err
		return data, err
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(e.rawDataPoll), pollCtx)
	data, err := backoff.RetryWithData(op, b)
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &TimeoutError{What: rawDataVariable, Timeout: e.rawDataTimeout, Err: lastErr}
	}
	return nil, err
}

func rawDataFromVariable(ctx context.Context, s browser.Session) ([]domain.GraphsRawDatum, error) {
	var data []domain.GraphsRawDatum
	err := s.JSValue(ctx, rawDataVariable, &data)
	switch {
	case err == nil:
		if data == nil {
			data = []domain.GraphsRawDatum{}
		}
		return data, nil
	case errors.Is(err, browser.ErrUndefined):
		return nil, errRawDataMissing
	case errors.Is(err, browser.ErrUnsupported):
		return nil, backoff.Permanent(err)
	default:
		return nil, err
	}
}

func rawDataFromScript(p *page) ([]domain.GraphsRawDatum, error) {
	var raw string
	p.doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		if m := rawDataRegex.FindStringSubmatch(script.Text()); m != nil {
			raw = m[1]
			return false
		}
		return true
	})
	if raw == "" {
		return nil, errRawDataMissing
	}

	var data []domain.GraphsRawDatum
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to decode raw_data: %w", err))
	}
	return data, nil
}
