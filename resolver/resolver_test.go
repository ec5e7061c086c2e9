package resolver

import (
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestResolveAbsoluteRef(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "layouts/base.html", "base")

	r := New(fs)
	path, src, err := r.Resolve("pages", "/layouts/base.html")
	require.NoError(t, err)
	assert.Equal(t, "layouts/base.html", path)
	assert.Equal(t, "base", string(src))
}

func TestResolveRelativeRefFallsBackToRoot(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "partials/card.html", "card")

	r := New(fs)
	path, src, err := r.Resolve("pages", "partials/card.html")
	require.NoError(t, err)
	assert.Equal(t, "partials/card.html", path)
	assert.Equal(t, "card", string(src))
}

func TestResolveRelativePrefersFromDir(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "pages/card.html", "page-local card")
	writeFile(t, fs, "card.html", "root card")

	r := New(fs)
	path, src, err := r.Resolve("pages", "card.html")
	require.NoError(t, err)
	assert.Equal(t, "pages/card.html", path)
	assert.Equal(t, "page-local card", string(src))
}

func TestResolveMissingRefIsFatal(t *testing.T) {
	fs := memfs.New()
	r := New(fs)
	_, _, err := r.Resolve("pages", "missing.html")
	assert.Error(t, err)
}
