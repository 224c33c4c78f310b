// Package security validates operator-supplied file locations.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for paths that are empty or carry characters
// that would change how the path is interpreted.
var ErrUnsafePath = errors.New("unsafe file path")

// dsnChars would be read as query or fragment separators once the path is
// turned into a database DSN.
var dsnChars = []string{"?", "#"}

// shellChars are shell metacharacters.
var shellChars = []string{";", "&", "|", "$", "`", "<", ">", "\n", "\r"}

// DatabasePath validates path as the location of a local database file and
// returns it cleaned and absolute. Symlinks are resolved when the file
// already exists.
func DatabasePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsafePath)
	}
	for _, set := range [][]string{dsnChars, shellChars} {
		for _, c := range set {
			if strings.Contains(path, c) {
				return "", fmt.Errorf("%w: forbidden character %q in %s", ErrUnsafePath, c, path)
			}
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return resolved, nil
}
