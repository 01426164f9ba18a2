package storage

import "log"

// NullSink accepts every save and stores nothing. It stands in for a database
// when persistence should be a no-op.
type NullSink struct {
	// Logger receives the save notice. The standard logger is used when nil.
	Logger *log.Logger
}

// NewNullSink creates a new null sink
func NewNullSink() *NullSink {
	return &NullSink{}
}

func (s *NullSink) Save(data string) error {
	if s.Logger != nil {
		s.Logger.Printf("(NullSink) pretend saving %d bytes to DB", len(data))
		return nil
	}
	log.Printf("(NullSink) pretend saving %d bytes to DB", len(data))
	return nil
}

func (s *NullSink) String() string {
	return "null sink"
}

var _ Sink = (*NullSink)(nil)
