package storage

import (
	"fmt"
	"os"
)

// DefaultFilename is used when a file-backed sink is given no path
const DefaultFilename = "document.txt"

// FileSink writes the rendered document as the full contents of a file.
type FileSink struct {
	Filename string
}

// NewFileSink creates a new file sink
func NewFileSink(filename string) *FileSink {
	if filename == "" {
		filename = DefaultFilename
	}
	return &FileSink{Filename: filename}
}

// Save overwrites the file with data. The underlying error is wrapped, not retried.
func (s *FileSink) Save(data string) error {
	if err := os.WriteFile(s.Filename, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Filename, err)
	}
	return nil
}

func (s *FileSink) String() string {
	return s.Filename
}

var _ Sink = (*FileSink)(nil)
