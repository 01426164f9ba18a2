package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Sink persists a fully rendered document. Any type with this method is a sink;
// the editor never depends on a concrete implementation.
type Sink interface {
	Save(data string) error
}

// Sink kinds accepted by Open
const (
	KindFile     = "file"
	KindNull     = "null"
	KindPostgres = "postgres"
	KindPDF      = "pdf"
)

var (
	// ErrUnknownSink is returned by Open for an unsupported kind
	ErrUnknownSink = errors.New("unknown sink kind")
	// ErrRevisionNotFound is returned when a stored revision does not exist
	ErrRevisionNotFound = errors.New("revision not found")
)

// Options carries what the sink constructors need. Fields irrelevant to the
// selected kind are ignored.
type Options struct {
	Filename    string
	DatabaseURL string
	Title       string
}

// Open builds the sink named by kind.
func Open(kind string, opts Options) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindFile, "":
		return NewFileSink(opts.Filename), nil
	case KindNull, "db":
		return NewNullSink(), nil
	case KindPDF:
		return NewPDFSink(opts.Filename), nil
	case KindPostgres:
		sink, err := NewPostgresSink(opts.DatabaseURL, opts.Title)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, kind)
	}
}

// Describe returns a human-readable name for where sink writes.
func Describe(sink Sink) string {
	if s, ok := sink.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", sink)
}
