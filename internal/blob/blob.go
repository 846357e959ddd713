// Package blob reads and writes whole files addressed either by a local
// path or by an s3://bucket/key URI. Writes are all-or-nothing: a failed
// write never leaves a partial file behind.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when the file or object does not exist.
var ErrNotFound = errors.New("not found")

// s3Scheme prefixes object store locations.
const s3Scheme = "s3://"

// Store reads and writes complete blobs.
type Store interface {
	Read(ctx context.Context, location string) ([]byte, error)
	Write(ctx context.Context, location string, data []byte) error
}

// Router dispatches each location to the local filesystem or to S3.
// The S3 client is created on first use so local-only runs never load AWS
// configuration.
type Router struct {
	Local Store
	S3    func(ctx context.Context) (Store, error)

	s3 Store
}

// NewRouter returns a Router backed by the local filesystem and the AWS
// default credential chain.
func NewRouter() *Router {
	return &Router{
		Local: LocalStore{},
		S3:    NewS3Store,
	}
}

// IsS3 reports whether location is an s3:// URI.
func IsS3(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

func (r *Router) pick(ctx context.Context, location string) (Store, error) {
	if !IsS3(location) {
		return r.Local, nil
	}
	if r.s3 == nil {
		s, err := r.S3(ctx)
		if err != nil {
			return nil, fmt.Errorf("init s3 client: %w", err)
		}
		r.s3 = s
	}
	return r.s3, nil
}

// Read returns the full content at location.
func (r *Router) Read(ctx context.Context, location string) ([]byte, error) {
	s, err := r.pick(ctx, location)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, location)
}

// Write replaces the content at location.
func (r *Router) Write(ctx context.Context, location string, data []byte) error {
	s, err := r.pick(ctx, location)
	if err != nil {
		return err
	}
	return s.Write(ctx, location, data)
}

// LocalStore reads and writes files on the local filesystem.
type LocalStore struct{}

// Read returns the file content, mapping a missing file to ErrNotFound.
func (LocalStore) Read(_ context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

// Write creates parent directories, writes to a temp file next to the
// target and renames it into place.
func (LocalStore) Write(_ context.Context, location string, data []byte) error {
	dir := filepath.Dir(location)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(location)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", location, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", location, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", location, err)
	}
	if err := os.Rename(tmpName, location); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", location, err)
	}
	return nil
}

// Join appends name to a directory location, for local paths and s3 URIs
// alike.
func Join(dir, name string) string {
	if IsS3(dir) {
		return strings.TrimRight(dir, "/") + "/" + name
	}
	return filepath.Join(dir, name)
}
