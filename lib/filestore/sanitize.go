package filestore

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeFileNameChars = regexp.MustCompile(`[\x00-\x1f\x7f/\\:*?"<>|]`)
var underscoreRuns = regexp.MustCompile(`_+`)

// sanitizeFileName reduces an arbitrary client-supplied file name to a
// safe path component: only the basename survives (split on both "/"
// and "\"), every character unsafe in a file name is replaced with "_",
// runs of "_" collapse to one, and leading/trailing "_" and "." are
// stripped. A name that sanitizes to nothing becomes "unnamed".
func sanitizeFileName(name string) string {
	base := filepath.Base(name)
	if i := strings.LastIndexByte(base, '\\'); i >= 0 {
		base = base[i+1:]
	}
	replaced := unsafeFileNameChars.ReplaceAllString(base, "_")
	collapsed := underscoreRuns.ReplaceAllString(replaced, "_")
	trimmed := strings.Trim(collapsed, "_.")
	if trimmed == "" {
		return "unnamed"
	}
	return trimmed
}
