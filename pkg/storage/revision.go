package storage

import "time"

// Revision is one saved render of a document
type Revision struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Version   int       `json:"version"`
}

// RevisionStore is implemented by sinks that keep a history of saves
type RevisionStore interface {
	Sink
	Latest() (*Revision, error)
	GetRevision(id string) (*Revision, error)
	ListRevisions() ([]*Revision, error)
	DeleteRevision(id string) error
}
