package toolserver

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// SessionContextStoreInput is session_context_store's argument shape.
type SessionContextStoreInput struct {
	SessionID   string   `json:"session_id" jsonschema:"minLength=1"`
	Task        string   `json:"task" jsonschema:"minLength=1"`
	Focus       string   `json:"focus,omitempty"`
	CurrentPlan string   `json:"current_plan,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	DocShotID   string   `json:"doc_shot_id,omitempty"`
	TTLDays     int      `json:"ttl_days,omitempty" default:"3" jsonschema:"minimum=1,maximum=30"`
}

// SessionContextStoreOutput is session_context_store's result shape.
type SessionContextStoreOutput struct {
	SessionID string `json:"session_id"`
	ExpiresAt int64  `json:"expires_at"`
	Status    string `json:"status"`
}

// SessionContextRetrieveInput is session_context_retrieve's argument shape.
type SessionContextRetrieveInput struct {
	SessionID string `json:"session_id,omitempty"`
	Limit     int    `json:"limit,omitempty" default:"5" jsonschema:"minimum=1,maximum=50"`
}

// SessionContextRetrieveOutput is session_context_retrieve's result shape.
type SessionContextRetrieveOutput struct {
	Sessions []*model.SessionContext `json:"sessions"`
}

// SessionContextDeleteInput is session_context_delete's argument shape.
type SessionContextDeleteInput struct {
	SessionID string `json:"session_id" jsonschema:"minLength=1"`
}

// SessionContextDeleteOutput is session_context_delete's result shape.
type SessionContextDeleteOutput struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func registerSessionTools(r *Registry, d *Deps) {
	Register(r, "session_context_store", "Upsert a session's short-lived working memory.",
		func(ctx context.Context, in SessionContextStoreInput) (SessionContextStoreOutput, error) {
			now := d.now()
			sc := &model.SessionContext{
				SessionID:   in.SessionID,
				Task:        in.Task,
				Focus:       in.Focus,
				CurrentPlan: in.CurrentPlan,
				Constraints: in.Constraints,
				DocShotID:   in.DocShotID,
				CreatedAt:   now,
				ExpiresAt:   model.NewSessionContextExpiry(now, in.TTLDays),
				IsActive:    true,
			}
			if err := d.Graph.UpsertSessionContext(ctx, sc); err != nil {
				return SessionContextStoreOutput{}, err
			}
			return SessionContextStoreOutput{SessionID: sc.SessionID, ExpiresAt: sc.ExpiresAt, Status: "stored"}, nil
		})

	Register(r, "session_context_retrieve", "Fetch one session context by id, or the most recent sessions.",
		func(ctx context.Context, in SessionContextRetrieveInput) (SessionContextRetrieveOutput, error) {
			if in.SessionID != "" {
				sc, err := d.Graph.GetSessionContext(ctx, in.SessionID)
				if err != nil {
					return SessionContextRetrieveOutput{}, err
				}
				if sc == nil {
					return SessionContextRetrieveOutput{}, apperrors.ErrNotFound
				}
				return SessionContextRetrieveOutput{Sessions: []*model.SessionContext{sc}}, nil
			}
			sessions, err := d.Graph.ListSessionContexts(ctx, in.Limit)
			if err != nil {
				return SessionContextRetrieveOutput{}, err
			}
			return SessionContextRetrieveOutput{Sessions: sessions}, nil
		})

	Register(r, "session_context_delete", "Deactivate a session context.",
		func(ctx context.Context, in SessionContextDeleteInput) (SessionContextDeleteOutput, error) {
			if err := d.Graph.DeactivateSessionContext(ctx, in.SessionID); err != nil {
				return SessionContextDeleteOutput{}, err
			}
			return SessionContextDeleteOutput{SessionID: in.SessionID, Status: "deleted"}, nil
		})
}
