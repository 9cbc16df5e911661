package staging

import (
	"path"
	"strings"
)

// NormalizePath brings a reported path into the canonical form used for all
// storage lookups: forward slashes, cleaned, no trailing separator. Two
// different string forms of the same directory normalize identically, so
// re-submission under a cosmetic variant is a no-op.
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// ParentPath returns the normalized parent of an already-normalized path, or
// "" when the path has no parent worth linking (root or single segment).
func ParentPath(p string) string {
	parent := path.Dir(p)
	if parent == "." || parent == "/" || parent == p {
		return ""
	}
	return parent
}
