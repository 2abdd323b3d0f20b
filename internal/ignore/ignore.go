// Package ignore reads .labscrubignore files: one doublestar pattern per
// line, '#' comments, a trailing '/' for directories and a leading '/' to
// anchor at the root.
package ignore

import (
	"bufio"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up at a batch root.
const FileName = ".labscrubignore"

type Matcher struct {
	patterns []string
}

// Load reads the ignore file at p. A missing file yields an empty matcher
// and the open error.
func Load(p string) (Matcher, error) {
	f, err := os.Open(p)
	if err != nil {
		return Matcher{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads patterns from r.
func Parse(r io.Reader) (Matcher, error) {
	var m Matcher
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, line)
	}
	return m, sc.Err()
}

// Match reports whether rel, a path relative to the root, is ignored.
func (m Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.patterns {
		if matchOne(p, rel) {
			return true
		}
	}
	return false
}

func matchOne(p, rel string) bool {
	anchored := strings.HasPrefix(p, "/")
	p = strings.TrimPrefix(p, "/")
	if dir, ok := strings.CutSuffix(p, "/"); ok {
		if ok, _ := doublestar.Match(dir+"/**", rel); ok {
			return true
		}
		if anchored {
			return false
		}
		ok, _ := doublestar.Match("**/"+dir+"/**", rel)
		return ok
	}
	if !anchored && !strings.Contains(p, "/") {
		ok, _ := doublestar.Match(p, path.Base(rel))
		return ok
	}
	ok, _ := doublestar.Match(p, rel)
	return ok
}
