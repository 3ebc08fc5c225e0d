// Package filterfs wraps an fs.FS to hide files and directories that a
// dependency scan should never descend into: build output, vendored or
// installed third-party trees, and VCS metadata. Ecosystem scanners walk a
// workspace root through one of these, so a stray node_modules or vendor/
// tree never gets misread as first-party source.
package filterfs

import (
	"io/fs"
	"path"
)

// defaultSkip holds directory names that are never descended into. Ecosystem
// scanners locate manifests explicitly (package.json, go.mod, and so on);
// these trees hold installed or generated artifacts, not declarations.
var defaultSkip = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".venv":        true,
	"__pycache__":  true,
}

// FS wraps an fs.FS, hiding inaccessible files and skip-listed directories
// from directory listings (ReadDir, and ReadDir on a directory obtained
// through Open). Open itself does not consult the skip list: a path inside
// a skip-listed directory that is named directly still opens.
type FS struct {
	fsys fs.FS
	skip map[string]bool
}

// New creates an FS wrapper around fsys using the default skip list.
func New(fsys fs.FS) *FS {
	return &FS{fsys: fsys, skip: defaultSkip}
}

// NewWithSkip creates an FS wrapper using a caller-supplied set of directory
// names to skip, in addition to the default list.
func NewWithSkip(fsys fs.FS, extra ...string) *FS {
	skip := make(map[string]bool, len(defaultSkip)+len(extra))
	for k := range defaultSkip {
		skip[k] = true
	}
	for _, e := range extra {
		skip[e] = true
	}
	return &FS{fsys: fsys, skip: skip}
}

// Open opens the named file. A directory is wrapped so its ReadDir goes
// through the same filtering as the top-level FS.
func (f *FS) Open(name string) (fs.File, error) {
	file, err := f.fsys.Open(name)
	if err != nil {
		return file, err
	}

	fi, err := file.Stat()
	if err != nil {
		return file, err
	}

	if fi.IsDir() {
		return &DirFile{fsys: f, fdir: file, name: name}, nil
	}
	return file, nil
}

// ReadDir lists the entries of name, dropping skip-listed directories and
// anything that can't be opened or stat'd.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if _, err := fs.Stat(f.fsys, name); err != nil {
		return nil, fs.SkipDir
	}

	entries, err := fs.ReadDir(f.fsys, name)
	if err != nil {
		return nil, fs.SkipDir
	}

	filtered := make([]fs.DirEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && f.skip[entry.Name()] {
			continue
		}
		p := path.Join(name, entry.Name())
		fi, err := fs.Stat(f.fsys, p)
		if err != nil {
			continue
		}
		if !fi.Mode().IsRegular() && !fi.Mode().IsDir() {
			continue
		}
		file, err := f.fsys.Open(p)
		if err != nil {
			continue
		}
		file.Close()
		filtered = append(filtered, entry)
	}
	return filtered, nil
}
