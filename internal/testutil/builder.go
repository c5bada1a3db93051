// Package testutil builds pattern library fixtures for tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haosfm/haos/internal/patterns"
)

// Builder accumulates pattern files and writes them to a library directory.
type Builder struct {
	t     *testing.T
	dir   string
	files []fileData
}

// NewBuilder creates a builder writing into dir.
func NewBuilder(t *testing.T, dir string) *Builder {
	t.Helper()
	return &Builder{t: t, dir: dir}
}

// WithPattern adds a pattern with optional configuration.
func (b *Builder) WithPattern(name string, opts ...PatternOption) *Builder {
	f := defaultFile()
	for _, opt := range opts {
		opt(&f)
	}
	b.files = append(b.files, fileData{name: name, file: f})
	return b
}

// Build saves every pattern and returns an uncached library over dir.
func (b *Builder) Build() *patterns.Library {
	b.t.Helper()
	lib := patterns.New(b.dir, patterns.WithoutCache())
	for _, fd := range b.files {
		require.NoError(b.t, lib.Save(fd.name, fd.file), "saving pattern %s", fd.name)
	}
	return lib
}
