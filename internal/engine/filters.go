package engine

import (
	"path"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/redactyl/labscrub/internal/files"
)

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"tmp":          true,
}

// suffixes treated as non-text artifacts when default excludes are enabled
var defaultExcludeFileSuffixes = []string{
	".png", ".jpg", ".jpeg", ".gif", ".tif", ".tiff",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".7z",
	".doc", ".docx", ".xls", ".xlsx",
	".bak", ".swp", "~",
}

var defaultExcludeFileNames = map[string]bool{
	".DS_Store":   true,
	"Thumbs.db":   true,
	"desktop.ini": true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name]
}

func isDefaultFileExcluded(lowerRel string) bool {
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	return defaultExcludeFileNames[path.Base(lowerRel)]
}

// isStateFile reports files labscrub itself writes: its caches, audit log and
// previously sanitized outputs. These are never inputs.
func isStateFile(rel string) bool {
	base := path.Base(filepath.ToSlash(rel))
	for _, s := range files.StateFiles() {
		if base == s {
			return true
		}
	}
	return matchAnyGlob(base, files.GeneratedOutputs())
}

func allowedByGlobs(relPath string, cfg Config) bool {
	rp := strings.ReplaceAll(relPath, "\\", "/")
	includes := parseGlobsList(cfg.IncludeGlobs)
	excludes := parseGlobsList(cfg.ExcludeGlobs)
	if len(includes) > 0 && !matchAnyGlob(rp, includes) {
		return false
	}
	if len(excludes) > 0 && matchAnyGlob(rp, excludes) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, path.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
