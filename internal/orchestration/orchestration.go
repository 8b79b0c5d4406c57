// Package orchestration implements the business rules layered on top of the
// Graph Store's Squad/Role/Profile/Assignment accessors: duplicate-name
// rejection on squad creation and ordered assignment listing. The graph
// client exposes CreateSquad/FindSquadByName separately and documents that
// uniqueness is enforced one layer up (see graphstore/orchestration.go); this
// package is that layer, in the same narrow-interface-over-*graphstore.Client
// shape as internal/outcometracker.
package orchestration

import (
	"context"
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
)

// GraphStore is the subset of *graphstore.Client the service depends on.
type GraphStore interface {
	CreateSquad(ctx context.Context, s *model.Squad) error
	FindSquadByName(ctx context.Context, name string) (string, error)
	ListSquads(ctx context.Context, limit int) ([]*model.Squad, error)
	AddAssignment(ctx context.Context, a *model.Assignment) error
	ListAssignments(ctx context.Context, squadID string) ([]*model.Assignment, error)
	UpsertProfile(ctx context.Context, p *model.Profile) error
	UpsertRole(ctx context.Context, r *model.Role) error
	GetRole(ctx context.Context, id string) (*model.Role, error)
	LinkRole(ctx context.Context, roleID, toLabel, toID string) error
	UnlinkRole(ctx context.Context, roleID, toLabel, toID string) error
}

// Service implements squad/role/profile/assignment operations.
type Service struct {
	store GraphStore
}

// New constructs a Service.
func New(store GraphStore) *Service {
	return &Service{store: store}
}

// CreateSquad creates a squad, rejecting a duplicate name in the namespace
// with apperrors.ErrConflict rather than creating a second node with the
// same name.
func (s *Service) CreateSquad(ctx context.Context, squad *model.Squad) error {
	existing, err := s.store.FindSquadByName(ctx, squad.Name)
	if err != nil {
		return fmt.Errorf("orchestration: create_squad: %w", err)
	}
	if existing != "" {
		return fmt.Errorf("orchestration: create_squad: squad %q: %w", squad.Name, apperrors.ErrConflict)
	}
	if err := s.store.CreateSquad(ctx, squad); err != nil {
		return fmt.Errorf("orchestration: create_squad: %w", err)
	}
	return nil
}

// ListSquads returns up to limit squads, each with its assignments loaded.
func (s *Service) ListSquads(ctx context.Context, limit int) ([]*model.Squad, error) {
	squads, err := s.store.ListSquads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("orchestration: list_squads: %w", err)
	}
	for _, squad := range squads {
		assignments, err := s.store.ListAssignments(ctx, squad.ID)
		if err != nil {
			return nil, fmt.Errorf("orchestration: list_squads: assignments for %s: %w", squad.ID, err)
		}
		for _, a := range assignments {
			squad.Assignments = append(squad.Assignments, *a)
		}
	}
	return squads, nil
}

// AddAssignment binds a role and profile into a squad at the given order.
func (s *Service) AddAssignment(ctx context.Context, a *model.Assignment) error {
	if err := s.store.AddAssignment(ctx, a); err != nil {
		return fmt.Errorf("orchestration: add_assignment: %w", err)
	}
	return nil
}

// UpsertProfile creates or updates a Profile.
func (s *Service) UpsertProfile(ctx context.Context, p *model.Profile) error {
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return fmt.Errorf("orchestration: upsert_profile: %w", err)
	}
	return nil
}

// UpsertRole creates or updates a Role.
func (s *Service) UpsertRole(ctx context.Context, r *model.Role) error {
	if err := s.store.UpsertRole(ctx, r); err != nil {
		return fmt.Errorf("orchestration: upsert_role: %w", err)
	}
	return nil
}

// GetRole returns a role by id, or apperrors.ErrNotFound if absent.
func (s *Service) GetRole(ctx context.Context, id string) (*model.Role, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("orchestration: get_role: %w", err)
	}
	if role == nil {
		return nil, fmt.Errorf("orchestration: get_role: %s: %w", id, apperrors.ErrNotFound)
	}
	return role, nil
}

// LinkRole links a DocShot/Skill/NegativeKnowledge to a role.
func (s *Service) LinkRole(ctx context.Context, roleID, toLabel, toID string) error {
	if err := s.store.LinkRole(ctx, roleID, toLabel, toID); err != nil {
		return fmt.Errorf("orchestration: role_link: %w", err)
	}
	return nil
}

// UnlinkRole removes a role link.
func (s *Service) UnlinkRole(ctx context.Context, roleID, toLabel, toID string) error {
	if err := s.store.UnlinkRole(ctx, roleID, toLabel, toID); err != nil {
		return fmt.Errorf("orchestration: role_unlink: %w", err)
	}
	return nil
}
