package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

var ErrUnparsableDate = errors.New("unparsable date")

var (
	// ", 20" closing a day or month, as in "Mon, 2nd Nov, 20 18:04:11"
	shortYearRegex = regexp.MustCompile(`(?i)([a-z]{3,}\.?|\d(?:st|nd|rd|th)?),\s*(\d{2})(\s|$)`)

	aFewRegex = regexp.MustCompile(`(?i)\ba few\b`)
	nowRegex  = regexp.MustCompile(`(?i)\bjust now\b`)
)

// Date parses the human readable dates printed by csgostats.gg, such as
// "Last Game 2 days ago", "Sun, 9th May" or "Mon, 2nd Nov, 20". Relative
// dates are resolved against ref, a missing year is taken from ref and a
// trailing two digit year means 20YY. Leading labels are skipped.
func Date(text string, ref time.Time) (time.Time, error) {
	cfg := &dps.Configuration{
		Languages:       []string{"en"},
		CurrentTime:     ref,
		DefaultTimezone: ref.Location(),
	}

	words := strings.Fields(normalizeDate(text))
	for i := range words {
		dt, err := dps.Parse(cfg, strings.Join(words[i:], " "))
		if err == nil && !dt.Time.IsZero() {
			return dt.Time.In(ref.Location()), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, text)
}

func normalizeDate(text string) string {
	text = strings.TrimRight(strings.TrimSpace(text), ".")
	text = shortYearRegex.ReplaceAllString(text, "${1} 20${2}${3}")
	text = aFewRegex.ReplaceAllString(text, "3")
	return nowRegex.ReplaceAllString(text, "now")
}
