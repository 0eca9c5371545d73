package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Disk cache for fetched PDF templates. Government form sources are slow and
// occasionally flaky, so fetched templates are kept locally for a while.

const templateDir = "cache/templates"

// TemplatePath returns the cache file path for a template source URL.
func TemplatePath(source string) string {
	hash := generateHash(source)
	return filepath.Join(templateDir, fmt.Sprintf("%s.pdf", hash[:16]))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	hash := xxhash.Sum64String(s)
	return fmt.Sprintf("%016x", hash)
}

// WriteTemplate stores fetched template bytes.
func WriteTemplate(source string, data []byte) error {
	if err := os.MkdirAll(templateDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(TemplatePath(source), data, 0644)
}

// ReadTemplate returns cached template bytes if present and not expired.
func ReadTemplate(source string, maxAge time.Duration) ([]byte, bool) {
	path := TemplatePath(source)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) > maxAge {
		return nil, false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	return content, true
}

// ClearTemplate removes a cached template.
func ClearTemplate(source string) error {
	err := os.Remove(TemplatePath(source))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearOldTemplates removes cached templates older than the given duration.
func ClearOldTemplates(maxAge time.Duration) error {
	return filepath.Walk(templateDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if info.IsDir() {
			return nil
		}

		if !strings.HasSuffix(path, ".pdf") {
			return nil
		}

		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}

		return nil
	})
}
