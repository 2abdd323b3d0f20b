// Package files edits ignore files in a working directory.
package files

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// AppendIgnore ensures pattern is present in the ignore file name at root.
// It creates the file if missing. Idempotent.
func AppendIgnore(root, name, pattern string) error {
	path := filepath.Join(root, name)
	existing := map[string]bool{}
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		_ = f.Close()
	}
	if existing[pattern] {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(pattern + "\n")
	return err
}

// StateFiles returns the files labscrub writes next to its inputs. They hold
// no PHI but should not be committed or sanitized.
func StateFiles() []string {
	return []string{
		".labscrubcache.json",
		".labscrub_last_scan.json",
		".labscrub_audit.jsonl",
	}
}

// GeneratedOutputs returns patterns matching sanitized outputs, so a batch
// run over a tree that already holds outputs does not sanitize them again.
func GeneratedOutputs() []string {
	return []string{"*_sanitized.txt"}
}
