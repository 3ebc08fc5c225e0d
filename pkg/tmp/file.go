// Package tmp provides a self-cleaning temporary file, used by the scan
// cache and the advisory client to stage an entry or feed file before
// renaming it into place, and by the advisory client to spool a feed
// response.
package tmp

import (
	"os"
)

// File wraps an *os.File and also implements a Close method which cleans up
// the file from the filesystem.
type File struct {
	*os.File
}

// NewFile creates a temporary file in dir matching pattern. Close removes it.
func NewFile(dir, pattern string) (*File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}

	return &File{f}, nil
}

// Close closes the file handle and removes the file from the filesystem
func (t *File) Close() error {
	if err := t.File.Close(); err != nil {
		return err
	}
	return os.Remove(t.File.Name())
}
