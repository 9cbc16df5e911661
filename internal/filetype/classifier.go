// Package filetype maps file names to their role inside a staged directory.
package filetype

import (
	"strings"

	"github.com/JustinTDCT/StageVault/internal/models"
)

// Extension sets per role. Keys are lowercase, without the leading dot.
var videoExtensions = map[string]bool{
	"mp4": true, "mkv": true, "avi": true, "mov": true,
	"m4v": true, "wmv": true, "flv": true, "webm": true,
	"ts": true, "m2ts": true, "mpg": true, "mpeg": true,
	"iso": true, "vob": true,
}

var subtitleExtensions = map[string]bool{
	"srt": true, "sub": true, "ssa": true, "ass": true,
	"vtt": true, "idx": true, "smi": true,
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "bmp": true, "tbn": true,
}

// Classify returns the role for a file name. It is deterministic and total:
// every input yields exactly one role, unrecognized extensions yield
// models.RoleUnknown. Safe for concurrent use.
func Classify(fileName string) models.FileRole {
	name := strings.ToLower(fileName)
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return models.RoleUnknown
	}
	ext := name[idx+1:]

	switch {
	case ext == "nfo":
		return models.RoleNFO
	case videoExtensions[ext]:
		if name == "trailer."+ext || strings.HasSuffix(name, ".trailer."+ext) {
			return models.RoleTrailer
		}
		return models.RoleVideo
	case subtitleExtensions[ext]:
		return models.RoleSubtitle
	case imageExtensions[ext]:
		if name == "fanart."+ext || strings.HasSuffix(name, ".fanart."+ext) {
			return models.RoleFanart
		}
		if strings.HasSuffix(name, ".videoimage."+ext) {
			return models.RoleVideoImage
		}
		// Any other image next to media is treated as its poster.
		return models.RolePoster
	default:
		return models.RoleUnknown
	}
}

// IsVideoExtension reports whether ext (without dot, any case) is a known
// video container extension.
func IsVideoExtension(ext string) bool {
	return videoExtensions[strings.ToLower(ext)]
}
