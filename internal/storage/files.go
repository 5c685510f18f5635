package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	gpxExt = ".gpx"

	// slugMaxLen bounds the human readable part of generated filenames.
	slugMaxLen = 30

	versionTimeLayout = "20060102_150405"
)

// versionPattern matches {stem}_v_{YYYYMMDD_HHMMSS}[_n].gpx and captures the stem.
var versionPattern = regexp.MustCompile(`^(.+)_v_\d{8}_\d{6}(?:_\d+)?\.gpx$`)

// validFilename accepts bare "*.gpx" names only, so client supplied
// names can never escape the storage directory.
func validFilename(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, gpxExt) {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// versionOf returns the stem of the route a version filename belongs to.
func versionOf(filename string) (string, bool) {
	m := versionPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isVersionName(filename string) bool {
	_, ok := versionOf(filename)
	return ok
}

// slugify lowercases name, keeps letters, digits, space, hyphen and
// underscore, turns spaces into underscores and truncates.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	slug := strings.ToLower(strings.ReplaceAll(b.String(), " ", "_"))
	if runes := []rune(slug); len(runes) > slugMaxLen {
		slug = string(runes[:slugMaxLen])
	}
	if slug == "" {
		slug = "route"
	}
	return slug
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func newRouteFilename(name string) string {
	return fmt.Sprintf("%s_%s%s", slugify(name), randomSuffix(), gpxExt)
}

// createExclusive writes data to a file that must not exist yet.
func createExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// replaceFile swaps path's content through a temp file and rename.
// The temp file is a dotfile and is never listed as a route.
func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*"+gpxExt)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
