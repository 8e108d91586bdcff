// Package storage archives uploaded bank statements on the local filesystem
// so an import can be traced back to, and replayed from, its source file.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrFileNotFound is returned when an archived file does not exist.
var ErrFileNotFound = errors.New("archived file not found")

// FileInfo contains metadata about an archived file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Account     string    `json:"account"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the account directory
	CreatedAt   time.Time `json:"created_at"`
}

// Archive stores statement files per account.
type Archive interface {
	// Save stores a file and returns its metadata
	Save(ctx context.Context, account, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for an archived file; the caller closes it
	Open(ctx context.Context, account string, id uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// List returns the files of an account, oldest first
	List(ctx context.Context, account string) ([]*FileInfo, error)
}

// New returns a local archive rooted at dir, or nil when dir is empty,
// which disables archiving.
func New(dir string) (Archive, error) {
	if dir == "" {
		return nil, nil
	}
	local, err := NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	return local, nil
}
