package engramstore

import "fmt"

// IndexEntry is one row of the local engram search index.
type IndexEntry struct {
	EngramID  string
	SessionID string
	Timestamp int64
	Branch    string
	CommitSHA string
	Intent    string
	FilePath  string
}

// IndexEngram records (or replaces) one engram's searchable fields in the
// local index, a secondary view of the graph. The tool server's engram
// write path does not call it.
func (s *Store) IndexEngram(e IndexEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO engram_index (engram_id, session_id, timestamp, branch, commit_sha, intent, file_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(engram_id) DO UPDATE SET
		   session_id=excluded.session_id, timestamp=excluded.timestamp, branch=excluded.branch,
		   commit_sha=excluded.commit_sha, intent=excluded.intent, file_path=excluded.file_path`,
		e.EngramID, e.SessionID, e.Timestamp, e.Branch, e.CommitSHA, e.Intent, e.FilePath,
	)
	if err != nil {
		return fmt.Errorf("engramstore: index engram: %w", err)
	}
	return nil
}

// FindEngramsByCommit returns index entries matching a commit SHA, most
// recent first.
func (s *Store) FindEngramsByCommit(commitSHA string) ([]IndexEntry, error) {
	return s.queryIndex(`SELECT engram_id, session_id, timestamp, branch, commit_sha, intent, file_path
		FROM engram_index WHERE commit_sha = ? ORDER BY timestamp DESC`, commitSHA)
}

// FindEngramsBySession returns index entries for a session, most recent
// first.
func (s *Store) FindEngramsBySession(sessionID string) ([]IndexEntry, error) {
	return s.queryIndex(`SELECT engram_id, session_id, timestamp, branch, commit_sha, intent, file_path
		FROM engram_index WHERE session_id = ? ORDER BY timestamp DESC`, sessionID)
}

// ListRecentEngramIndex returns up to limit index entries, most recent
// first.
func (s *Store) ListRecentEngramIndex(limit int) ([]IndexEntry, error) {
	return s.queryIndex(`SELECT engram_id, session_id, timestamp, branch, commit_sha, intent, file_path
		FROM engram_index ORDER BY timestamp DESC LIMIT ?`, limit)
}

func (s *Store) queryIndex(query string, args ...any) ([]IndexEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("engramstore: query index: %w", err)
	}
	defer rows.Close()

	var out []IndexEntry
	for rows.Next() {
		var e IndexEntry
		if err := rows.Scan(&e.EngramID, &e.SessionID, &e.Timestamp, &e.Branch, &e.CommitSHA, &e.Intent, &e.FilePath); err != nil {
			return nil, fmt.Errorf("engramstore: scan index row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
