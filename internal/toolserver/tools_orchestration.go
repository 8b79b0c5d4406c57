package toolserver

import (
	"context"

	"github.com/actiquest-dev/membria-core/internal/model"
)

// SquadCreateInput is squad_create's argument shape.
type SquadCreateInput struct {
	Name     string `json:"name" jsonschema:"minLength=1"`
	Strategy string `json:"strategy,omitempty" default:"single"`
}

// SquadCreateOutput is squad_create's result shape.
type SquadCreateOutput struct {
	SquadID string `json:"squad_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
}

// AssignmentAddInput is assignment_add's argument shape.
type AssignmentAddInput struct {
	SquadID   string `json:"squad_id" jsonschema:"minLength=1"`
	RoleID    string `json:"role_id" jsonschema:"minLength=1"`
	ProfileID string `json:"profile_id" jsonschema:"minLength=1"`
	Order     int    `json:"order,omitempty"`
}

// AssignmentAddOutput is assignment_add's result shape.
type AssignmentAddOutput struct {
	AssignmentID string `json:"assignment_id"`
	Status       string `json:"status"`
}

// SquadListInput is squad_list's argument shape.
type SquadListInput struct {
	Limit int `json:"limit,omitempty" default:"20" jsonschema:"minimum=1,maximum=200"`
}

// SquadListOutput is squad_list's result shape.
type SquadListOutput struct {
	Squads []*model.Squad `json:"squads"`
}

// SquadAssignmentsInput is squad_assignments's argument shape.
type SquadAssignmentsInput struct {
	SquadID string `json:"squad_id" jsonschema:"minLength=1"`
}

// SquadAssignmentsOutput is squad_assignments's result shape.
type SquadAssignmentsOutput struct {
	SquadID     string             `json:"squad_id"`
	Assignments []model.Assignment `json:"assignments"`
}

// ProfileUpsertInput is profile_upsert's argument shape.
type ProfileUpsertInput struct {
	ProfileID  string `json:"profile_id,omitempty"`
	Name       string `json:"name" jsonschema:"minLength=1"`
	ConfigPath string `json:"config_path" jsonschema:"minLength=1"`
}

// ProfileUpsertOutput is profile_upsert's result shape.
type ProfileUpsertOutput struct {
	ProfileID string `json:"profile_id"`
	Status    string `json:"status"`
}

// RoleUpsertInput is role_upsert's argument shape.
type RoleUpsertInput struct {
	RoleID     string `json:"role_id,omitempty"`
	Name       string `json:"name" jsonschema:"minLength=1"`
	PromptPath string `json:"prompt_path,omitempty"`
}

// RoleUpsertOutput is role_upsert's result shape.
type RoleUpsertOutput struct {
	RoleID string `json:"role_id"`
	Status string `json:"status"`
}

// RoleGetInput is role_get's argument shape.
type RoleGetInput struct {
	RoleID string `json:"role_id" jsonschema:"minLength=1"`
}

// RoleGetOutput is role_get's result shape.
type RoleGetOutput struct {
	Role *model.Role `json:"role"`
}

// RoleLinkInput is shared by role_link and role_unlink.
type RoleLinkInput struct {
	RoleID  string `json:"role_id" jsonschema:"minLength=1"`
	ToLabel string `json:"to_label" jsonschema:"minLength=1"`
	ToID    string `json:"to_id" jsonschema:"minLength=1"`
}

// RoleLinkOutput is role_link/role_unlink's result shape.
type RoleLinkOutput struct {
	RoleID string `json:"role_id"`
	Status string `json:"status"`
}

func registerOrchestrationTools(r *Registry, d *Deps) {
	Register(r, "squad_create", "Create a named multi-agent orchestration unit.",
		func(ctx context.Context, in SquadCreateInput) (SquadCreateOutput, error) {
			now := d.now()
			squad := &model.Squad{
				ID:        newSquadID(now),
				Name:      in.Name,
				Strategy:  in.Strategy,
				CreatedAt: now,
			}
			if err := d.Orchestration.CreateSquad(ctx, squad); err != nil {
				return SquadCreateOutput{}, err
			}
			return SquadCreateOutput{SquadID: squad.ID, Name: squad.Name, Status: "created"}, nil
		})

	Register(r, "assignment_add", "Bind a role and profile into a squad at a given execution order.",
		func(ctx context.Context, in AssignmentAddInput) (AssignmentAddOutput, error) {
			now := d.now()
			a := &model.Assignment{
				ID:        newAssignmentID(now),
				SquadID:   in.SquadID,
				RoleID:    in.RoleID,
				ProfileID: in.ProfileID,
				Order:     in.Order,
				CreatedAt: now,
			}
			if err := d.Orchestration.AddAssignment(ctx, a); err != nil {
				return AssignmentAddOutput{}, err
			}
			return AssignmentAddOutput{AssignmentID: a.ID, Status: "added"}, nil
		})

	Register(r, "squad_list", "List squads with their assignments.",
		func(ctx context.Context, in SquadListInput) (SquadListOutput, error) {
			squads, err := d.Orchestration.ListSquads(ctx, in.Limit)
			if err != nil {
				return SquadListOutput{}, err
			}
			return SquadListOutput{Squads: squads}, nil
		})

	Register(r, "squad_assignments", "List one squad's assignments.",
		func(ctx context.Context, in SquadAssignmentsInput) (SquadAssignmentsOutput, error) {
			squads, err := d.Orchestration.ListSquads(ctx, 1000)
			if err != nil {
				return SquadAssignmentsOutput{}, err
			}
			for _, squad := range squads {
				if squad.ID == in.SquadID {
					assignments := squad.Assignments
					if assignments == nil {
						assignments = []model.Assignment{}
					}
					return SquadAssignmentsOutput{SquadID: in.SquadID, Assignments: assignments}, nil
				}
			}
			return SquadAssignmentsOutput{SquadID: in.SquadID, Assignments: []model.Assignment{}}, nil
		})

	Register(r, "profile_upsert", "Create or update a stored agent configuration profile.",
		func(ctx context.Context, in ProfileUpsertInput) (ProfileUpsertOutput, error) {
			now := d.now()
			profileID := in.ProfileID
			if profileID == "" {
				profileID = newProfileID(now)
			}
			p := &model.Profile{
				ID:         profileID,
				Name:       in.Name,
				ConfigPath: in.ConfigPath,
				CreatedAt:  now,
			}
			if err := d.Orchestration.UpsertProfile(ctx, p); err != nil {
				return ProfileUpsertOutput{}, err
			}
			return ProfileUpsertOutput{ProfileID: profileID, Status: "stored"}, nil
		})

	Register(r, "role_upsert", "Create or update a role.",
		func(ctx context.Context, in RoleUpsertInput) (RoleUpsertOutput, error) {
			now := d.now()
			roleID := in.RoleID
			if roleID == "" {
				roleID = newRoleID(now)
			}
			role := &model.Role{
				ID:         roleID,
				Name:       in.Name,
				PromptPath: in.PromptPath,
				CreatedAt:  now,
			}
			if err := d.Orchestration.UpsertRole(ctx, role); err != nil {
				return RoleUpsertOutput{}, err
			}
			return RoleUpsertOutput{RoleID: roleID, Status: "stored"}, nil
		})

	Register(r, "role_get", "Fetch a role with its linked DocShots, Skills, and NegativeKnowledge.",
		func(ctx context.Context, in RoleGetInput) (RoleGetOutput, error) {
			role, err := d.Orchestration.GetRole(ctx, in.RoleID)
			if err != nil {
				return RoleGetOutput{}, err
			}
			return RoleGetOutput{Role: role}, nil
		})

	Register(r, "role_link", "Link a DocShot, Skill, or NegativeKnowledge entry to a role.",
		func(ctx context.Context, in RoleLinkInput) (RoleLinkOutput, error) {
			if err := d.Orchestration.LinkRole(ctx, in.RoleID, in.ToLabel, in.ToID); err != nil {
				return RoleLinkOutput{}, err
			}
			return RoleLinkOutput{RoleID: in.RoleID, Status: "linked"}, nil
		})

	Register(r, "role_unlink", "Remove a role's link to a DocShot, Skill, or NegativeKnowledge entry.",
		func(ctx context.Context, in RoleLinkInput) (RoleLinkOutput, error) {
			if err := d.Orchestration.UnlinkRole(ctx, in.RoleID, in.ToLabel, in.ToID); err != nil {
				return RoleLinkOutput{}, err
			}
			return RoleLinkOutput{RoleID: in.RoleID, Status: "unlinked"}, nil
		})
}
