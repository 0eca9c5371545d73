package cache

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	assert.NoError(t, err)
	assert.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestTemplatePath(t *testing.T) {
	path := TemplatePath("https://example.com/form.pdf")
	assert.Contains(t, path, "cache/templates")
	assert.Contains(t, path, ".pdf")

	// Same source, same path. Different source, different path.
	assert.Equal(t, path, TemplatePath("https://example.com/form.pdf"))
	assert.NotEqual(t, path, TemplatePath("https://example.com/other.pdf"))
}

func TestWriteReadClearTemplate(t *testing.T) {
	chdirTemp(t)

	source := "https://example.com/form.pdf"
	content := []byte("%PDF-1.7 fake")

	_, ok := ReadTemplate(source, time.Hour)
	assert.False(t, ok)

	assert.NoError(t, WriteTemplate(source, content))

	got, ok := ReadTemplate(source, time.Hour)
	assert.True(t, ok)
	assert.Equal(t, content, got)

	assert.NoError(t, ClearTemplate(source))
	_, ok = ReadTemplate(source, time.Hour)
	assert.False(t, ok)
}

func TestReadTemplate_Expired(t *testing.T) {
	chdirTemp(t)

	source := "https://example.com/form.pdf"
	assert.NoError(t, WriteTemplate(source, []byte("%PDF-1.7 fake")))

	old := time.Now().Add(-48 * time.Hour)
	assert.NoError(t, os.Chtimes(TemplatePath(source), old, old))

	_, ok := ReadTemplate(source, 24*time.Hour)
	assert.False(t, ok)
}

func TestClearOldTemplates(t *testing.T) {
	chdirTemp(t)

	fresh := "https://example.com/fresh.pdf"
	stale := "https://example.com/stale.pdf"
	assert.NoError(t, WriteTemplate(fresh, []byte("fresh")))
	assert.NoError(t, WriteTemplate(stale, []byte("stale")))

	old := time.Now().Add(-48 * time.Hour)
	assert.NoError(t, os.Chtimes(TemplatePath(stale), old, old))

	assert.NoError(t, ClearOldTemplates(24*time.Hour))

	_, ok := ReadTemplate(fresh, time.Hour)
	assert.True(t, ok)
	_, err := os.Stat(TemplatePath(stale))
	assert.True(t, os.IsNotExist(err))
}
