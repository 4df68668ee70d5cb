package helpers

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
)

// ArchiveName returns the last path segment of a download URL.
func ArchiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("URL %q has no file name", rawURL)
	}
	return name, nil
}

// SwapExt replaces the trailing from extension of p with to.
// Paths not ending in from are returned with to appended.
func SwapExt(p, from, to string) string {
	return strings.TrimSuffix(p, from) + to
}

// Exists reports whether p exists. Errors other than "not exist" count as existing
// so callers never overwrite something they cannot inspect.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
