package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	leadingIntRegex   = regexp.MustCompile(`^[+-]?\d[\d,]*`)
	leadingFloatRegex = regexp.MustCompile(`^[+-]?(?:\d[\d,]*(?:\.\d*)?|\.\d+)`)
)

func Int(text string) (float64, error) {
	m := leadingIntRegex.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0, fmt.Errorf("failed to parse integer from %q", text)
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m, ",", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from %q: %w", text, err)
	}
	return float64(n), nil
}

func Float(text string) (float64, error) {
	m := leadingFloatRegex.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0, fmt.Errorf("failed to parse number from %q", text)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse number from %q: %w", text, err)
	}
	return f, nil
}

// Percent turns "45%" into 0.45.
func Percent(text string) (float64, error) {
	n, err := Int(text)
	if err != nil {
		return 0, err
	}
	return n / 100, nil
}

// Number applies fn to the text of the first element of sel. An empty
// selection is not an error: ok is false and the field is left unset.
func Number(sel *goquery.Selection, fn func(string) (float64, error)) (value float64, ok bool, err error) {
	if sel == nil || sel.Length() == 0 {
		return 0, false, nil
	}
	value, err = fn(strings.TrimSpace(sel.First().Text()))
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}
