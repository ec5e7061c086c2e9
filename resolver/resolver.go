// Package resolver implements spec.md §4.B: resolving a template reference
// to its canonical path and source bytes. It performs no caching (spec.md
// §5) and no I/O beyond the go-billy filesystem it is handed — mirroring
// how go-git abstracts worktree access through billy.Filesystem, which is
// why this package is grounded on that dependency instead of bare os calls
// (SPEC_FULL.md §3).
package resolver

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"golang.org/x/xerrors"
)

// Resolver resolves template references against one root filesystem.
type Resolver struct {
	fs billy.Filesystem
}

func New(fs billy.Filesystem) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve follows spec.md §4.B: an absolute ref (leading '/') resolves
// relative to the configured root; a relative ref resolves relative to
// fromDir (the including template's directory), falling back to the root
// if that lookup fails.
func (r *Resolver) Resolve(fromDir, ref string) (canonicalPath string, src []byte, err error) {
	if strings.HasPrefix(ref, "/") {
		canonicalPath = strings.TrimPrefix(ref, "/")
		src, err = r.read(canonicalPath)
		return canonicalPath, src, err
	}

	rel := filepath.Join(fromDir, ref)
	if src, err = r.read(rel); err == nil {
		return rel, src, nil
	}

	src, rootErr := r.read(ref)
	if rootErr != nil {
		return "", nil, xerrors.Errorf("resolve %q (from %q): %w", ref, fromDir, err)
	}
	return ref, src, nil
}

func (r *Resolver) read(path string) ([]byte, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
