package storage

// createTable creates the document_revisions table if it doesn't exist
func (s *PostgresSink) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS document_revisions (
		id VARCHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_document_revisions_title ON document_revisions(title, version);
	CREATE INDEX IF NOT EXISTS idx_document_revisions_created_at ON document_revisions(created_at);
	`

	_, err := s.db.Exec(query)
	return err
}
