// Package cache remembers which inputs were already sanitized so batch runs
// can skip files whose content has not changed.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const fileName = ".labscrubcache.json"

type DB struct {
	// Rules identifies the rule set the entries were produced with; a
	// mismatch invalidates every entry.
	Rules string `json:"rules"`
	// Input path relative to the batch root -> content hash (xxhash hex)
	Entries map[string]string `json:"entries"`
}

func defaultPath(root string) string {
	return filepath.Join(root, fileName)
}

// Load reads the cache under root. A missing or unreadable cache yields an
// empty DB together with the error.
func Load(root string) (DB, error) {
	var db DB
	f, err := os.ReadFile(defaultPath(root))
	if err != nil {
		return DB{Entries: map[string]string{}}, err
	}
	if err := json.Unmarshal(f, &db); err != nil {
		return DB{Entries: map[string]string{}}, err
	}
	if db.Entries == nil {
		db.Entries = map[string]string{}
	}
	return db, nil
}

// LoadFor is Load, discarding the entries when they were written for a
// different rule set.
func LoadFor(root, rules string) DB {
	db, err := Load(root)
	if err != nil || db.Rules != rules {
		return DB{Rules: rules, Entries: map[string]string{}}
	}
	return db
}

func Save(root string, db DB) error {
	if db.Entries == nil {
		return errors.New("empty cache")
	}
	b, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(defaultPath(root), b, 0600)
}
