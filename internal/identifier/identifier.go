// Package identifier builds stable string keys from parsed media identity.
// Keys group files belonging to the same logical movie, season, or episode,
// so their exact shape is a contract: callers persist and compare them.
package identifier

import "fmt"

// UnknownYear is the literal placeholder used when no year could be parsed.
const UnknownYear = "0000"

// MovieKey returns "title_year". A year <= 0 uses the UnknownYear placeholder.
func MovieKey(title string, year int) string {
	if year <= 0 {
		return title + "_" + UnknownYear
	}
	return fmt.Sprintf("%s_%d", title, year)
}

// SeasonKey returns the movie key extended with the season number,
// zero-padded to three digits.
func SeasonKey(title string, year, season int) string {
	return fmt.Sprintf("%s_%03d", MovieKey(title, year), season)
}

// EpisodeKey returns the season key extended with the episode number,
// zero-padded to three digits.
func EpisodeKey(title string, year, season, episode int) string {
	return fmt.Sprintf("%s_%03d", SeasonKey(title, year, season), episode)
}
