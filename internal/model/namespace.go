// Package model defines the entity and relationship types persisted in the
// property graph and the local calibration/engram stores.
package model

// Namespace is the (tenant_id, team_id, project_id) triple every persistent
// entity is tagged with. All read and write operations filter by it.
type Namespace struct {
	TenantID  string `json:"tenant_id"`
	TeamID    string `json:"team_id"`
	ProjectID string `json:"project_id"`
}

func (n Namespace) String() string {
	return n.TenantID + "/" + n.TeamID + "/" + n.ProjectID
}

// IsZero reports whether the namespace has no tags set.
func (n Namespace) IsZero() bool {
	return n.TenantID == "" && n.TeamID == "" && n.ProjectID == ""
}
