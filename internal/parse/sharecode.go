package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidShareCode = errors.New("invalid share code")

var shareCodeRegex = regexp.MustCompile(`^CSGO(-[A-Za-z0-9]{5}){5}$`)

// ShareCode checks the CSGO-xxxxx-xxxxx-xxxxx-xxxxx-xxxxx form of a match
// share code.
func ShareCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !shareCodeRegex.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidShareCode, code)
	}
	return code, nil
}
