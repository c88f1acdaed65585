// Package dbpath resolves the mythos SQLite database location for CLI
// commands that share one database (play, saves, serve, backfill).
package dbpath

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve returns the SQLite database path to use. Precedence: the explicit
// override, the MYTHOS_SQLITE / MYTHOS_DB environment variables, then the
// first existing candidate path.
//
// Unlike lookups for an existing database, a fresh install has no file yet;
// DefaultPath names where a new one should be created.
func Resolve(override string) (string, bool) {
	if strings.TrimSpace(override) != "" {
		return override, true
	}

	if envPath := strings.TrimSpace(os.Getenv("MYTHOS_SQLITE")); envPath != "" {
		return envPath, true
	}
	if envPath := strings.TrimSpace(os.Getenv("MYTHOS_DB")); envPath != "" {
		return envPath, true
	}

	for _, candidate := range candidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

// DefaultPath is where a new database is created when none exists: a local
// .mythos/ directory if present, otherwise ~/.mythos/mythos.db.
func DefaultPath() string {
	if info, err := os.Stat(".mythos"); err == nil && info.IsDir() {
		return filepath.Join(".mythos", "mythos.db")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "mythos.db"
	}

	return filepath.Join(home, ".mythos", "mythos.db")
}

func candidates() []string {
	paths := []string{
		"mythos.db",
		"mythos.sqlite",
		filepath.Join(".mythos", "mythos.db"),
		filepath.Join(".mythos", "mythos.sqlite"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		paths = append([]string{
			filepath.Join(home, ".mythos", "mythos.db"),
			filepath.Join(home, ".mythos", "mythos.sqlite"),
		}, paths...)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		paths = append([]string{
			filepath.Join(xdgHome, "mythos", "mythos.db"),
			filepath.Join(xdgHome, "mythos", "mythos.sqlite"),
		}, paths...)
	}

	return paths
}
