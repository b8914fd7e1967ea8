package remote

import (
	"context"
	"errors"
)

// Package remote contains the client for the hosted Git repository that acts
// as the persistence layer. The repository exposes read-file and write-file
// operations; the file's blob SHA doubles as an optimistic-concurrency token.

var (
	// ErrFileNotFound means the file does not exist at the given path. For the
	// insights document this is a valid initial state, not a failure.
	ErrFileNotFound = errors.New("remote file not found")
	// ErrShaMismatch means the write carried a stale version token because
	// another writer committed in between.
	ErrShaMismatch = errors.New("remote file sha mismatch")
)

// File is the content of a remote file together with its version token.
type File struct {
	Content []byte
	SHA     string
}

// FileStore reads and writes single files in the remote repository.
// Implementations must return ErrFileNotFound and ErrShaMismatch for the
// corresponding upstream conditions so callers can branch on them.
type FileStore interface {
	// Get fetches the file at path on the configured branch.
	Get(ctx context.Context, path string) (File, error)

	// Put commits new content for the file at path. sha must be the token from
	// the most recent Get, or empty when creating the file. It returns the new
	// content SHA on success.
	Put(ctx context.Context, path string, content []byte, sha, message string) (string, error)
}
