// Package parser turns raw file and directory names into structured media
// identity. Parsing is best-effort and total: unrecognized segments fall back
// to defaults, the parser never fails.
package parser

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JustinTDCT/StageVault/internal/filetype"
	"github.com/JustinTDCT/StageVault/internal/identifier"
)

// ──────────────────── Parsed Result ────────────────────

// SetMembership records that a file belongs to a named boxed set, with an
// optional position inside the set (-1 when absent).
type SetMembership struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// FilenameInfo holds everything extracted from one file or directory name.
// Numeric fields default to -1 when the name carries no such token.
type FilenameInfo struct {
	Name       string `json:"name"`
	ParentName string `json:"parent_name"`
	IsDir      bool   `json:"is_dir"`

	Title     string `json:"title"`
	PartTitle string `json:"part_title,omitempty"`
	Year      int    `json:"year"`

	Season   int   `json:"season"`
	Episodes []int `json:"episodes,omitempty"`
	Part     int   `json:"part"`
	Extra    bool  `json:"extra"`

	AudioCodec string `json:"audio_codec,omitempty"`
	VideoCodec string `json:"video_codec,omitempty"`
	Container  string `json:"container,omitempty"`
	FrameRate  string `json:"frame_rate,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Source     string `json:"source,omitempty"`

	Sets        []SetMembership   `json:"sets,omitempty"`
	Languages   []string          `json:"languages,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
}

// IsMovie reports whether the name parsed as a movie: no episode tokens found.
func (f FilenameInfo) IsMovie() bool {
	return len(f.Episodes) == 0
}

// MovieKey returns the stable grouping key for the parsed title and year.
func (f FilenameInfo) MovieKey() string {
	return identifier.MovieKey(f.Title, f.Year)
}

// SeasonKey returns the stable key for the parsed season. Movies have no
// season key; callers should check IsMovie first.
func (f FilenameInfo) SeasonKey() string {
	return identifier.SeasonKey(f.Title, f.Year, f.Season)
}

// EpisodeKeys returns one stable key per parsed episode number.
func (f FilenameInfo) EpisodeKeys() []string {
	keys := make([]string, 0, len(f.Episodes))
	for _, ep := range f.Episodes {
		keys = append(keys, identifier.EpisodeKey(f.Title, f.Year, f.Season, ep))
	}
	return keys
}

// ──────────────────── Token Tables ────────────────────

var resolutionTokens = map[string]bool{
	"480p": true, "480i": true, "576p": true, "576i": true,
	"720p": true, "720i": true, "1080p": true, "1080i": true,
	"2160p": true, "4k": true, "uhd": true, "ultrahd": true,
}

var videoCodecTokens = map[string]bool{
	"x264": true, "x265": true, "h264": true, "h265": true,
	"hevc": true, "avc": true, "xvid": true, "divx": true,
	"av1": true, "vp9": true, "10bit": true, "hi10p": true,
}

var audioCodecTokens = map[string]bool{
	"aac": true, "ac3": true, "eac3": true, "dts": true,
	"dtshd": true, "truehd": true, "atmos": true, "flac": true,
	"mp3": true, "opus": true, "vorbis": true,
}

// sourceTokenMap maps identifying tokens to their canonical source label.
var sourceTokenMap = map[string]string{
	"bluray": "bluray", "blu-ray": "bluray", "bdrip": "bluray",
	"brrip": "bluray", "bdremux": "bluray", "remux": "bluray",
	"dvd": "dvd", "dvdrip": "dvd",
	"web": "web", "webrip": "web", "webdl": "web", "web-dl": "web",
	"hdtv": "hdtv", "pdtv": "hdtv", "tvrip": "hdtv",
	"cam": "cam",
	"dvdscr": "screener", "screener": "screener",
	"telecine": "telecine", "telesync": "telesync",
}


// languageTokenMap maps unambiguous language tokens to canonical tags.
// Short two-letter codes are deliberately absent: they collide with real
// title words far too often.
var languageTokenMap = map[string]string{
	"english": "en", "eng": "en",
	"german": "de", "deutsch": "de", "ger": "de", "deu": "de",
	"french": "fr", "francais": "fr", "fra": "fr", "fre": "fr",
	"spanish": "es", "espanol": "es", "spa": "es",
	"italian": "it", "ita": "it",
	"japanese": "ja", "jpn": "ja",
	"russian": "ru", "rus": "ru",
	"dutch": "nl", "nld": "nl",
	"swedish": "sv", "swe": "sv",
	"danish": "da", "dan": "da",
	"norwegian": "no", "nor": "no",
	"multi": "multi",
}

var extraMarkerTokens = map[string]bool{
	"extra": true, "extras": true, "sample": true, "trailer": true,
}

// ──────────────────── Compiled Regex ────────────────────

var (
	tokenRx = regexp.MustCompile(`[^\s._\-\[\]\(\)\{\},+]+`)

	frameRateRx = regexp.MustCompile(`(?i)(?:^|[\s._-])(\d{2}(?:\.\d{1,3})?)[\s._-]?fps(?:[\s._-]|$)`)

	yearEnclosedRx  = regexp.MustCompile(`[\(\[]((?:19|20)\d{2})[\)\]]`)
	yearDelimitedRx = regexp.MustCompile(`(?:^|[\s._\-\(\[])((?:19|20)\d{2})(?:[\s._\-\)\]]|$)`)

	// Episode notations, most specific first.
	sxxExxRx      = regexp.MustCompile(`(?i)(?:^|[\s._\-\(\[])s(\d{1,3})[\s._-]*((?:e\d{1,4}[\s._-]*)+)`)
	epChainRx     = regexp.MustCompile(`(?i)e(\d{1,4})`)
	nxnRx         = regexp.MustCompile(`(?i)(?:^|[\s._-])(\d{1,2})x(\d{1,3})(?:-x?(\d{1,3}))?`)
	verboseEpRx   = regexp.MustCompile(`(?i)season[\s._-]*(\d{1,3})[\s._-]*episode[\s._-]*(\d{1,4})`)
	dotNotationRx = regexp.MustCompile(`(?:^|[\s._-])(\d{1,2})\.(\d{2})(?:[\s._-]|$)`)

	partRx = regexp.MustCompile(`(?i)[\s._-](?:part|pt|cd|disc|disk)[\s._-]?(\d{1,2})[\s._-]*$`)

	setBracketRx = regexp.MustCompile(`(?i)\[set[\s._-]+([^\]]+)\]`)
	setParenRx   = regexp.MustCompile(`(?i)\(set[\s._-]+([^)]+)\)`)
	setIndexRx   = regexp.MustCompile(`^(.*?)[\s,_-]+(\d{1,3})$`)

	externalIDPatterns = map[string]*regexp.Regexp{
		"tmdb": regexp.MustCompile(`(?i)[\[{]tmdb(?:id)?[=-](\d+)[\]}]`),
		"imdb": regexp.MustCompile(`(?i)[\[{]imdb(?:id)?[=-](tt\d+)[\]}]`),
		"tvdb": regexp.MustCompile(`(?i)[\[{]tvdb(?:id)?[=-](\d+)[\]}]`),
	}

	extensionRx = regexp.MustCompile(`^[0-9A-Za-z]{1,5}$`)

	emptyGroupRx = regexp.MustCompile(`[\(\[\{][\s._-]*[\)\]\}]`)
	multiSpaceRx = regexp.MustCompile(`\s+`)
)

// ──────────────────── Main Parser ────────────────────

// Parse extracts structured identity from a file or directory name. The
// parent directory name supplies the title (and year) when the name itself
// yields none, matching the folder-first layouts media managers produce.
func Parse(name, parentName string, isDir bool) FilenameInfo {
	info := FilenameInfo{
		Name:        name,
		ParentName:  parentName,
		IsDir:       isDir,
		Year:        -1,
		Season:      -1,
		Part:        -1,
		ExternalIDs: make(map[string]string),
	}

	base := name
	if !isDir {
		if ext := path.Ext(name); len(ext) > 1 && extensionRx.MatchString(ext[1:]) {
			base = strings.TrimSuffix(name, ext)
			info.Container = strings.ToLower(ext[1:])
		}
	}

	base = extractExternalIDs(base, info.ExternalIDs)
	base = extractSets(base, &info.Sets)
	base = stripNoiseTokens(base, &info)
	base = extractYear(base, &info)

	rest := base
	if pre, post, ok := extractEpisodes(base, &info); ok {
		rest = pre
		if m := partRx.FindStringSubmatchIndex(post); m != nil {
			info.Part, _ = strconv.Atoi(post[m[2]:m[3]])
			post = post[:m[0]]
		}
		info.PartTitle = cleanTitle(post)
	} else if m := partRx.FindStringSubmatchIndex(rest); m != nil {
		info.Part, _ = strconv.Atoi(rest[m[2]:m[3]])
		rest = rest[:m[0]]
	}

	info.Title = cleanTitle(rest)
	if info.Title == "" && parentName != "" {
		adoptParentTitle(parentName, &info)
	}

	return info
}

// adoptParentTitle derives title (and year, when still unknown) from the
// parent directory name.
func adoptParentTitle(parentName string, info *FilenameInfo) {
	scratch := FilenameInfo{Year: -1, Season: -1, Part: -1, ExternalIDs: make(map[string]string)}
	base := extractExternalIDs(parentName, info.ExternalIDs)
	base = extractSets(base, &info.Sets)
	base = stripNoiseTokens(base, &scratch)
	base = extractYear(base, &scratch)
	info.Title = cleanTitle(base)
	if info.Year < 0 && scratch.Year > 0 {
		info.Year = scratch.Year
	}
}

// ──────────────────── Extraction Passes ────────────────────

func extractExternalIDs(base string, ids map[string]string) string {
	for source, rx := range externalIDPatterns {
		if m := rx.FindStringSubmatch(base); len(m) >= 2 {
			ids[source] = m[1]
		}
		base = rx.ReplaceAllString(base, " ")
	}
	return base
}

func extractSets(base string, sets *[]SetMembership) string {
	for _, rx := range []*regexp.Regexp{setBracketRx, setParenRx} {
		for _, m := range rx.FindAllStringSubmatch(base, -1) {
			*sets = append(*sets, parseSetBody(m[1]))
		}
		base = rx.ReplaceAllString(base, " ")
	}
	return base
}

func parseSetBody(body string) SetMembership {
	body = strings.TrimSpace(body)
	if m := setIndexRx.FindStringSubmatch(body); m != nil {
		idx, _ := strconv.Atoi(m[2])
		return SetMembership{Name: cleanTitle(m[1]), Index: idx}
	}
	return SetMembership{Name: cleanTitle(body), Index: -1}
}

// stripNoiseTokens captures scene-release noise (resolution, codecs, source,
// container, frame rate, languages, extras markers) into their fields and
// blanks the tokens out so they cannot corrupt title or year detection.
func stripNoiseTokens(base string, info *FilenameInfo) string {
	if m := frameRateRx.FindStringSubmatchIndex(base); m != nil {
		info.FrameRate = base[m[2]:m[3]]
		base = base[:m[0]] + " " + base[m[1]:]
	}

	out := []byte(base)
	seenLang := make(map[string]bool)
	for _, loc := range tokenRx.FindAllStringIndex(base, -1) {
		token := strings.ToLower(base[loc[0]:loc[1]])
		known := true
		switch {
		case resolutionTokens[token]:
			if info.Resolution == "" {
				info.Resolution = token
			}
		case videoCodecTokens[token]:
			if info.VideoCodec == "" {
				info.VideoCodec = token
			}
		case audioCodecTokens[token]:
			if info.AudioCodec == "" {
				info.AudioCodec = token
			}
		case sourceTokenMap[token] != "":
			if info.Source == "" {
				info.Source = sourceTokenMap[token]
			}
		// Container names can also appear inside the name body, not just
		// as the file extension.
		case filetype.IsVideoExtension(token):
			if info.Container == "" {
				info.Container = token
			}
		case languageTokenMap[token] != "":
			tag := languageTokenMap[token]
			if !seenLang[tag] {
				seenLang[tag] = true
				info.Languages = append(info.Languages, tag)
			}
		case extraMarkerTokens[token]:
			info.Extra = true
		default:
			known = false
		}
		if known {
			for i := loc[0]; i < loc[1]; i++ {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

func extractYear(base string, info *FilenameInfo) string {
	now := time.Now().Year()
	for _, rx := range []*regexp.Regexp{yearEnclosedRx, yearDelimitedRx} {
		m := rx.FindStringSubmatchIndex(base)
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(base[m[2]:m[3]])
		if year < 1900 || year > now+1 {
			continue
		}
		info.Year = year
		return base[:m[0]] + " " + base[m[1]:]
	}
	return base
}

// extractEpisodes tries the episode notations in order of specificity and
// returns the text before and after the first match. A name with no episode
// tokens is a movie.
func extractEpisodes(base string, info *FilenameInfo) (pre, post string, ok bool) {
	normalized := strings.ReplaceAll(base, "_", " ")

	if m := sxxExxRx.FindStringSubmatchIndex(normalized); m != nil {
		info.Season, _ = strconv.Atoi(normalized[m[2]:m[3]])
		for _, em := range epChainRx.FindAllStringSubmatch(normalized[m[4]:m[5]], -1) {
			ep, _ := strconv.Atoi(em[1])
			info.Episodes = append(info.Episodes, ep)
		}
		return normalized[:m[0]], normalized[m[1]:], true
	}

	if m := nxnRx.FindStringSubmatchIndex(normalized); m != nil {
		info.Season, _ = strconv.Atoi(normalized[m[2]:m[3]])
		first, _ := strconv.Atoi(normalized[m[4]:m[5]])
		info.Episodes = append(info.Episodes, first)
		if m[6] >= 0 {
			last, _ := strconv.Atoi(normalized[m[6]:m[7]])
			for ep := first + 1; ep <= last; ep++ {
				info.Episodes = append(info.Episodes, ep)
			}
		}
		return normalized[:m[0]], normalized[m[1]:], true
	}

	if m := verboseEpRx.FindStringSubmatchIndex(normalized); m != nil {
		info.Season, _ = strconv.Atoi(normalized[m[2]:m[3]])
		ep, _ := strconv.Atoi(normalized[m[4]:m[5]])
		info.Episodes = append(info.Episodes, ep)
		return normalized[:m[0]], normalized[m[1]:], true
	}

	if m := dotNotationRx.FindStringSubmatchIndex(normalized); m != nil {
		info.Season, _ = strconv.Atoi(normalized[m[2]:m[3]])
		ep, _ := strconv.Atoi(normalized[m[4]:m[5]])
		info.Episodes = append(info.Episodes, ep)
		return normalized[:m[0]], normalized[m[1]:], true
	}

	return "", "", false
}

// ──────────────────── Utility ────────────────────

// cleanTitle normalizes separators left over after token extraction.
func cleanTitle(s string) string {
	s = emptyGroupRx.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = multiSpaceRx.ReplaceAllString(s, " ")
	return strings.Trim(s, " -–_,")
}
