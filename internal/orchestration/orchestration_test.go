package orchestration

import (
	"context"
	"testing"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"github.com/actiquest-dev/membria-core/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	squads      []*model.Squad
	assignments map[string][]*model.Assignment
	roles       map[string]*model.Role
	links       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assignments: map[string][]*model.Assignment{},
		roles:       map[string]*model.Role{},
	}
}

func (f *fakeStore) CreateSquad(_ context.Context, s *model.Squad) error {
	f.squads = append(f.squads, s)
	return nil
}

func (f *fakeStore) FindSquadByName(_ context.Context, name string) (string, error) {
	for _, s := range f.squads {
		if s.Name == name {
			return s.ID, nil
		}
	}
	return "", nil
}

func (f *fakeStore) ListSquads(_ context.Context, limit int) ([]*model.Squad, error) {
	return f.squads, nil
}

func (f *fakeStore) AddAssignment(_ context.Context, a *model.Assignment) error {
	f.assignments[a.SquadID] = append(f.assignments[a.SquadID], a)
	return nil
}

func (f *fakeStore) ListAssignments(_ context.Context, squadID string) ([]*model.Assignment, error) {
	return f.assignments[squadID], nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, p *model.Profile) error { return nil }

func (f *fakeStore) UpsertRole(_ context.Context, r *model.Role) error {
	f.roles[r.ID] = r
	return nil
}

func (f *fakeStore) GetRole(_ context.Context, id string) (*model.Role, error) {
	return f.roles[id], nil
}

func (f *fakeStore) LinkRole(_ context.Context, roleID, toLabel, toID string) error {
	f.links = append(f.links, roleID+"->"+toLabel+":"+toID)
	return nil
}

func (f *fakeStore) UnlinkRole(_ context.Context, roleID, toLabel, toID string) error {
	for i, l := range f.links {
		if l == roleID+"->"+toLabel+":"+toID {
			f.links = append(f.links[:i], f.links[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestCreateSquadRejectsDuplicateName(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	require.NoError(t, svc.CreateSquad(context.Background(), &model.Squad{
		ID: "sq_1", Name: "reviewers", Strategy: model.StrategyLeadReview,
	}))

	err := svc.CreateSquad(context.Background(), &model.Squad{
		ID: "sq_2", Name: "reviewers", Strategy: model.StrategySingle,
	})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	require.Len(t, store.squads, 1)
}

func TestListSquadsLoadsAssignments(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	require.NoError(t, svc.CreateSquad(context.Background(), &model.Squad{ID: "sq_1", Name: "reviewers"}))
	require.NoError(t, svc.AddAssignment(context.Background(), &model.Assignment{
		ID: "as_1", SquadID: "sq_1", RoleID: "role_lead", ProfileID: "prof_1", Order: 1,
	}))

	squads, err := svc.ListSquads(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, squads, 1)
	require.Len(t, squads[0].Assignments, 1)
	require.Equal(t, "role_lead", squads[0].Assignments[0].RoleID)
}

func TestGetRoleMissingReturnsNotFound(t *testing.T) {
	svc := New(newFakeStore())

	_, err := svc.GetRole(context.Background(), "role_missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRoleLinkAndUnlink(t *testing.T) {
	store := newFakeStore()
	svc := New(store)

	require.NoError(t, svc.UpsertRole(context.Background(), &model.Role{ID: "role_1", Name: "lead"}))
	require.NoError(t, svc.LinkRole(context.Background(), "role_1", "Skill", "sk-database-v1"))
	require.Len(t, store.links, 1)

	require.NoError(t, svc.UnlinkRole(context.Background(), "role_1", "Skill", "sk-database-v1"))
	require.Empty(t, store.links)
}
