package graphstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/actiquest-dev/membria-core/internal/sanitize"
)

// AddDocument creates or updates a Document node (matched by file_path
// within the namespace), returning its id.
func (c *Client) AddDocument(ctx context.Context, d *model.Document) (string, error) {
	if d.ID == "" {
		d.ID = "doc_" + sha1Hex(d.FilePath)[:16]
	}
	cypher := `
MERGE (doc:Document {file_path: $file_path, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
ON CREATE SET doc.id = $id, doc.created_at = $updated_at
SET doc.content = $content, doc.doc_type = $doc_type, doc.updated_at = $updated_at
RETURN doc.id AS id`
	params := map[string]any{
		"id": d.ID, "file_path": sanitize.FilePath(d.FilePath), "content": d.Content,
		"doc_type": d.DocType, "updated_at": d.UpdatedAt,
	}
	records, err := c.write(ctx, cypher, params)
	if err != nil {
		return "", err
	}
	if len(records) > 0 {
		return getString(records[0], "id"), nil
	}
	return d.ID, nil
}

// GetDocuments returns documents matched by id, file path, or doc type
// (any non-empty filter narrows the result; at least one must be given by
// the caller for a bounded result).
func (c *Client) GetDocuments(ctx context.Context, ids, filePaths, docTypes []string, limit int) ([]*model.Document, error) {
	cypher := `
MATCH (doc:Document {tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
WHERE (size($ids) = 0 OR doc.id IN $ids)
  AND (size($file_paths) = 0 OR doc.file_path IN $file_paths)
  AND (size($doc_types) = 0 OR doc.doc_type IN $doc_types)
RETURN doc.id AS id, doc.file_path AS file_path, doc.content AS content,
       doc.doc_type AS doc_type, doc.updated_at AS updated_at
ORDER BY doc.updated_at DESC
LIMIT $limit`
	records, err := c.read(ctx, cypher, map[string]any{
		"ids": ids, "file_paths": filePaths, "doc_types": docTypes, "limit": limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Document, 0, len(records))
	for _, rec := range records {
		out = append(out, &model.Document{
			ID: getString(rec, "id"), FilePath: getString(rec, "file_path"),
			Content: getString(rec, "content"), DocType: getString(rec, "doc_type"),
			UpdatedAt: getInt64(rec, "updated_at"),
		})
	}
	return out, nil
}

// ComputeDocShotID derives the content-addressed DocShot id for a set of
// documents: docshot_<sha1-prefix> of the sorted "doc_id:updated_at" pairs.
func ComputeDocShotID(docs []*model.Document) string {
	pairs := make([]string, 0, len(docs))
	for _, d := range docs {
		pairs = append(pairs, fmt.Sprintf("%s:%d", d.ID, d.UpdatedAt))
	}
	sort.Strings(pairs)
	joined := ""
	for _, p := range pairs {
		joined += p + "|"
	}
	return "docshot_" + sha1Hex(joined)[:16]
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// LinkDecisionDocs creates (or reuses) a DocShot over the given documents and
// links it to a decision via USES_DOCSHOT and DOCUMENTS, per docshot_link.
func (c *Client) LinkDecisionDocs(ctx context.Context, decisionID string, docs []*model.Document, fetchedAt int64) (string, error) {
	docShotID := ComputeDocShotID(docs)
	docIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		docIDs = append(docIDs, d.ID)
	}

	cypher := `
MERGE (ds:DocShot {id: $docshot_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
ON CREATE SET ds.created_at = $fetched_at, ds.doc_ids = $doc_ids
WITH ds
UNWIND $doc_ids AS docID
MATCH (doc:Document {id: docID, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MERGE (ds)-[:INCLUDES]->(doc)
WITH ds, collect(doc) AS docs
MATCH (dec:Decision {id: $decision_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MERGE (dec)-[:USES_DOCSHOT {fetched_at: $fetched_at, doc_count: size(docs)}]->(ds)
WITH dec, docs, $fetched_at AS fetchedAt
UNWIND docs AS doc
MERGE (dec)-[:DOCUMENTS {doc_shot_id: $docshot_id, doc_updated_at: doc.updated_at}]->(doc)`
	_, err := c.write(ctx, cypher, map[string]any{
		"docshot_id": docShotID, "doc_ids": docIDs, "fetched_at": fetchedAt, "decision_id": decisionID,
	})
	if err != nil {
		return "", err
	}
	return docShotID, nil
}

// GetDocShotDocuments returns the documents included in a DocShot, used by
// the context manager to render a DocShot reference section.
func (c *Client) GetDocShotDocuments(ctx context.Context, docShotID string) ([]*model.Document, error) {
	cypher := `
MATCH (ds:DocShot {id: $docshot_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})-[:INCLUDES]->(doc:Document)
RETURN doc.id AS id, doc.file_path AS file_path, doc.content AS content,
       doc.doc_type AS doc_type, doc.updated_at AS updated_at`
	records, err := c.read(ctx, cypher, map[string]any{"docshot_id": docShotID})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Document, 0, len(records))
	for _, rec := range records {
		out = append(out, &model.Document{
			ID: getString(rec, "id"), FilePath: getString(rec, "file_path"),
			Content: getString(rec, "content"), DocType: getString(rec, "doc_type"),
			UpdatedAt: getInt64(rec, "updated_at"),
		})
	}
	return out, nil
}
