package core

import "errors"

var (
	// ErrToolNotFound is returned when a required external executable is missing.
	ErrToolNotFound = errors.New("external tool not found")

	// ErrDataDirNotFound is returned when the data root does not exist.
	ErrDataDirNotFound = errors.New("data directory not found")

	// ErrUnsupportedScheme is returned for dataset URLs no source can fetch.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrUnsafeArchivePath is returned for archive entries that would land outside the target directory.
	ErrUnsafeArchivePath = errors.New("archive entry escapes target directory")

	// ErrNoBatchSize is returned when a result file name carries no batch size.
	ErrNoBatchSize = errors.New("no batch size in file name")

	// ErrMissingColumn is returned when a result table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrHeaderMismatch is returned when a vector file header disagrees with its size or expectations.
	ErrHeaderMismatch = errors.New("vector file header mismatch")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid configuration")
)
