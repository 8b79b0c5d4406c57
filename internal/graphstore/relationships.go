package graphstore

import (
	"context"
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// CreateRelationship creates an arbitrary typed edge between two existing
// nodes matched by label and id, with optional extra properties. This is the
// generic escape hatch backing edges that don't have a dedicated typed
// helper (e.g. SIMILAR_TO, CAUSED, PREVENTED, TRIGGERED).
// props should include created_at; CreateRelationship does not stamp one on
// the caller's behalf since the spec's edges carry event-specific
// timestamps (e.g. implemented_at, blocked_at) rather than a single
// convention.
func (c *Client) CreateRelationship(ctx context.Context, fromLabel, fromID, edge, toLabel, toID string, props map[string]any) error {
	cypher := fmt.Sprintf(`
MATCH (a:%s {id: $from_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
MATCH (b:%s {id: $to_id, tenant_id: $tenant_id, team_id: $team_id, project_id: $project_id})
CREATE (a)-[r:%s]->(b)
SET r += $props`, cypherLabel(fromLabel), cypherLabel(toLabel), cypherEdge(edge))

	params := map[string]any{
		"from_id": fromID, "to_id": toID, "props": props,
	}
	_, err := c.write(ctx, cypher, params)
	return err
}

// cypherLabel/cypherEdge validate against the fixed label/edge vocabulary so
// CreateRelationship's fmt.Sprintf never interpolates caller-controlled text
// into the query structure itself (only bound parameters carry user data).
func cypherLabel(label string) string {
	switch label {
	case model.LabelDecision, model.LabelCodeChange, model.LabelOutcome, model.LabelNegativeKnowledge,
		model.LabelAntiPattern, model.LabelEngram, model.LabelSkill, model.LabelDocument,
		model.LabelDocShot, model.LabelSessionContext, model.LabelSquad, model.LabelAssignment,
		model.LabelRole, model.LabelProfile:
		return label
	default:
		return "Unknown"
	}
}

func cypherEdge(edge string) string {
	switch edge {
	case model.EdgeMadeIn, model.EdgeImplementedIn, model.EdgeReworkedBy, model.EdgeResultedIn,
		model.EdgeCaused, model.EdgePrevented, model.EdgeTriggered, model.EdgeSimilarTo,
		model.EdgeUsesDocshot, model.EdgeIncludes, model.EdgeDocuments, model.EdgeAssigns,
		model.EdgePlaysRole, model.EdgeUsesProfile, model.EdgeRoleUsesDocshot, model.EdgeRoleUsesSkill,
		model.EdgeRoleUsesNK, model.EdgeGeneratedFrom:
		return edge
	default:
		return "RELATED_TO"
	}
}
