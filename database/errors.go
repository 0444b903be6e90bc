package database

import "github.com/pkg/errors"

var (
	// ErrDatabaseClosed is returned by operations on a closed database.
	ErrDatabaseClosed = errors.New("database closed")

	// ErrDatabaseNotFound is returned when the requested key is absent.
	ErrDatabaseNotFound = errors.New("key not found")

	// ErrSnapshotReleased is returned by reads through a released snapshot.
	ErrSnapshotReleased = errors.New("snapshot released")
)
