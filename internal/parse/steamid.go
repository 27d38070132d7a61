package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/paralin/go-steam/steamid"
)

var ErrInvalidSteamID = errors.New("invalid steam id")

var (
	steam3Regex     = regexp.MustCompile(`^\[U:1:(\d+)\]$`)
	steam2Regex     = regexp.MustCompile(`^STEAM_[0-5]:[01]:\d+$`)
	profileURLRegex = regexp.MustCompile(`/profiles/(\d+)`)
	numericRegex    = regexp.MustCompile(`^\d+$`)
)

// SteamID64 normalises a Steam ID to its 64-bit decimal form. Accepted
// inputs are 64-bit ids (string or integer), STEAM_X:Y:Z, [U:1:N], profile
// URLs and 32-bit account ids passed as uint32.
func SteamID64(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return steamID64FromString(id)
	case uint64:
		return nonZero(steamid.SteamId(id))
	case int64:
		if id <= 0 {
			return "", fmt.Errorf("%w: %d", ErrInvalidSteamID, id)
		}
		return nonZero(steamid.SteamId(uint64(id)))
	case uint32:
		return fromAccountID(uint64(id))
	case steamid.SteamId:
		return nonZero(id)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidSteamID, v)
	}
}

func steamID64FromString(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if m := profileURLRegex.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	switch {
	case steam3Regex.MatchString(s):
		account, err := strconv.ParseUint(steam3Regex.FindStringSubmatch(s)[1], 10, 32)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidSteamID, raw)
		}
		return fromAccountID(account)
	case steam2Regex.MatchString(s), numericRegex.MatchString(s):
		id, err := steamid.NewId(s)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidSteamID, raw)
		}
		return nonZero(id)
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSteamID, raw)
	}
}

func fromAccountID(account uint64) (string, error) {
	id, err := steamid.NewId(fmt.Sprintf("STEAM_0:%d:%d", account&1, account>>1))
	if err != nil {
		return "", fmt.Errorf("%w: account %d", ErrInvalidSteamID, account)
	}
	return nonZero(id)
}

func nonZero(id steamid.SteamId) (string, error) {
	if uint64(id) == 0 {
		return "", fmt.Errorf("%w: 0", ErrInvalidSteamID)
	}
	return strconv.FormatUint(uint64(id), 10), nil
}
