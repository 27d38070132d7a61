package parse

import (
	"regexp"
	"strconv"
	"strings"

	"csgostats-scraper/internal/domain"
)

const RankImagePrefix = "https://static.csgostats.gg/images/ranks/"

const rankPathSegment = "/images/ranks/"

var cssURLRegex = regexp.MustCompile(`url\(\s*["']?([^"')]+)["']?\s*\)`)

// rankIconName returns the icon file name between the ranks directory (plus an
// optional sub directory) and the file extension.
func rankIconName(iconURL, subdir string) (string, bool) {
	idx := strings.Index(iconURL, rankPathSegment+subdir)
	if idx < 0 {
		return "", false
	}
	name := iconURL[idx+len(rankPathSegment)+len(subdir):]
	if ext := strings.IndexAny(name, ".?#"); ext >= 0 {
		name = name[:ext]
	}
	return name, name != ""
}

func RankFromURL(iconURL string) (domain.Rank, bool) {
	name, ok := rankIconName(iconURL, "")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	rank := domain.Rank(n)
	return rank, rank.Valid()
}

// RankFromBackgroundImage reads the tier out of a computed background-image
// value such as url("https://static.csgostats.gg/images/ranks/15.png").
func RankFromBackgroundImage(css string) (domain.Rank, bool) {
	m := cssURLRegex.FindStringSubmatch(css)
	if m == nil {
		return 0, false
	}
	return RankFromURL(m[1])
}

// AverageRank maps a rank icon to the scale of the service that issued it. nil
// means the icon is missing or not recognised.
func AverageRank(iconURL string) domain.AverageRank {
	if iconURL == "" {
		return nil
	}
	switch {
	case strings.Contains(iconURL, "esea"):
		name, ok := rankIconName(iconURL, "esea/")
		if !ok {
			return nil
		}
		if rank, ok := domain.ESEAIconMap[name]; ok {
			return rank
		}
		return nil
	case strings.Contains(iconURL, "faceit"):
		name, ok := rankIconName(iconURL, "faceit/")
		if !ok {
			return nil
		}
		if rank, ok := domain.FaceItIconMap[name]; ok {
			return rank
		}
		return nil
	default:
		if rank, ok := RankFromURL(iconURL); ok {
			return rank
		}
		return nil
	}
}

func Service(iconPath string) domain.MatchmakingService {
	switch {
	case strings.Contains(iconPath, "esea"):
		return domain.ServiceESEA
	case strings.Contains(iconPath, "faceit"):
		return domain.ServiceFaceIt
	default:
		return domain.ServiceMM
	}
}
