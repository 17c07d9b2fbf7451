// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package addon

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"

	"github.com/samber/oops"
)

// Package is an opened addon package: a directory or a zip archive that
// holds the info entry and the addon's code.
type Package struct {
	// Path is the location the package was opened from.
	Path string
	// FS gives read access to the package contents.
	FS fs.FS

	dir    bool
	closer io.Closer
}

// OpenPackage opens the package at path. Directories are read in place,
// regular files are opened as zip archives.
func OpenPackage(path string) (*Package, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, oops.In("package").With("path", path).Wrap(err)
	}

	if st.IsDir() {
		return &Package{Path: path, FS: os.DirFS(path), dir: true}, nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, oops.In("package").With("path", path).Hint("not a zip archive").Wrap(err)
	}
	return &Package{Path: path, FS: zr, closer: zr}, nil
}

// IsDir reports whether the package is an unpacked directory.
func (p *Package) IsDir() bool {
	return p.dir
}

// Close releases the archive handle, if any.
func (p *Package) Close() error {
	if p.closer == nil {
		return nil
	}
	//nolint:wrapcheck // passthrough of archive close error
	return p.closer.Close()
}
