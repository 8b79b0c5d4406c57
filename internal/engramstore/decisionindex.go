package engramstore

import "fmt"

// DecisionIndexEntry is one row of the local decision cache: a flat
// projection of a Decision's list-relevant fields, written when a decision
// is recorded and updated when its outcome is recorded. The pattern
// extractor and context manager do not read this cache; they list
// decisions from the graph.
type DecisionIndexEntry struct {
	DecisionID string
	Module     string
	Statement  string
	Confidence float64
	Outcome    string
	CreatedAt  int64
}

// IndexDecision records (or replaces) one decision's cached listing fields.
func (s *Store) IndexDecision(e DecisionIndexEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO decisions (decision_id, module, statement, confidence, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(decision_id) DO UPDATE SET
		   module=excluded.module, statement=excluded.statement, confidence=excluded.confidence,
		   outcome=excluded.outcome, created_at=excluded.created_at`,
		e.DecisionID, e.Module, e.Statement, e.Confidence, e.Outcome, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("engramstore: index decision: %w", err)
	}
	return nil
}

// UpdateDecisionIndexOutcome updates the cached outcome for a decision,
// mirroring a graph UpdateDecisionMemory call.
func (s *Store) UpdateDecisionIndexOutcome(decisionID, outcome string) error {
	_, err := s.db.Exec(`UPDATE decisions SET outcome = ? WHERE decision_id = ?`, outcome, decisionID)
	if err != nil {
		return fmt.Errorf("engramstore: update decision index outcome: %w", err)
	}
	return nil
}

// ListRecentDecisionIndex returns up to limit cached decisions in a module
// (all modules if empty), most recent first.
func (s *Store) ListRecentDecisionIndex(module string, limit int) ([]DecisionIndexEntry, error) {
	query := `SELECT decision_id, module, statement, confidence, outcome, created_at
		FROM decisions WHERE (? = '' OR module = ?) ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.Query(query, module, module, limit)
	if err != nil {
		return nil, fmt.Errorf("engramstore: list recent decision index: %w", err)
	}
	defer rows.Close()

	var out []DecisionIndexEntry
	for rows.Next() {
		var e DecisionIndexEntry
		if err := rows.Scan(&e.DecisionID, &e.Module, &e.Statement, &e.Confidence, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("engramstore: scan decision index row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
