package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/riskibarqy/pokerdex/internal/domain/group"
)

// GroupRepository keeps groups, memberships and join requests in process
// memory. Insertion order is preserved so listings and succession picks are
// deterministic, mirroring the id tie-break of the SQL store.
type GroupRepository struct {
	mu           sync.RWMutex
	groups       map[string]group.Group
	groupOrder   []string
	memberships  []group.Membership
	requests     map[string]group.JoinRequest
	requestOrder []string

	games *GameRepository
}

func NewGroupRepository() *GroupRepository {
	return &GroupRepository{
		groups:   make(map[string]group.Group),
		requests: make(map[string]group.JoinRequest),
	}
}

// LinkGames wires the game store in so list summaries can carry post counts.
func (r *GroupRepository) LinkGames(games *GameRepository) {
	r.games = games
}

func (r *GroupRepository) CreateWithAdmin(_ context.Context, g group.Group, admin group.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.groups {
		if strings.EqualFold(existing.Name, g.Name) || existing.Slug == g.Slug {
			return group.ErrDuplicate
		}
	}

	r.groups[g.ID] = g
	r.groupOrder = append(r.groupOrder, g.ID)
	r.memberships = append(r.memberships, admin)
	return nil
}

func (r *GroupRepository) GetByID(_ context.Context, groupID string) (group.Group, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[groupID]
	return g, ok, nil
}

func (r *GroupRepository) GetBySlug(_ context.Context, slug string) (group.Group, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.groupOrder {
		if g, ok := r.groups[id]; ok && g.Slug == slug {
			return g, true, nil
		}
	}
	return group.Group{}, false, nil
}

func (r *GroupRepository) NameExistsFold(_ context.Context, name, excludeGroupID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.groups {
		if g.ID != excludeGroupID && strings.EqualFold(g.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *GroupRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.groups {
		if g.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *GroupRepository) Update(_ context.Context, groupID, name, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	for _, other := range r.groups {
		if other.ID != groupID && strings.EqualFold(other.Name, name) {
			return group.ErrDuplicate
		}
	}

	g.Name = name
	g.Description = description
	r.groups[groupID] = g
	return nil
}

func (r *GroupRepository) Delete(_ context.Context, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.groups, groupID)
	for i, id := range r.groupOrder {
		if id == groupID {
			r.groupOrder = append(r.groupOrder[:i], r.groupOrder[i+1:]...)
			break
		}
	}

	kept := r.memberships[:0]
	for _, m := range r.memberships {
		if m.GroupID != groupID {
			kept = append(kept, m)
		}
	}
	r.memberships = kept

	for id, request := range r.requests {
		if request.GroupID == groupID {
			delete(r.requests, id)
			r.requestOrder = removeID(r.requestOrder, id)
		}
	}

	if r.games != nil {
		r.games.removePostsByGroup(groupID)
	}
	return nil
}

func (r *GroupRepository) ListSummariesByUser(_ context.Context, userID string) ([]group.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]group.Summary, 0)
	for _, id := range r.groupOrder {
		g := r.groups[id]
		if !r.hasMembershipLocked(id, userID) {
			continue
		}

		summary := group.Summary{Group: g}
		for _, m := range r.memberships {
			if m.GroupID == id {
				summary.MemberCount++
			}
		}
		if r.games != nil {
			summary.PostCount, summary.LastPostAt = r.games.postStats(id)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (r *GroupRepository) ListOthersByUser(_ context.Context, userID string) ([]group.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]group.Group, 0)
	for _, id := range r.groupOrder {
		if !r.hasMembershipLocked(id, userID) {
			out = append(out, r.groups[id])
		}
	}
	return out, nil
}

func (r *GroupRepository) ListGroupIDsByUser(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0)
	for _, m := range r.memberships {
		if m.UserID == userID {
			out = append(out, m.GroupID)
		}
	}
	return out, nil
}

func (r *GroupRepository) ListMemberships(_ context.Context, groupID string) ([]group.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]group.Membership, 0)
	for _, m := range r.memberships {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (r *GroupRepository) GetMembership(_ context.Context, groupID, userID string) (group.Membership, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return m, true, nil
		}
	}
	return group.Membership{}, false, nil
}

func (r *GroupRepository) CreateMembership(_ context.Context, m group.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.createMembershipLocked(m)
}

func (r *GroupRepository) UpdateMembershipRole(_ context.Context, groupID, userID string, role group.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			r.memberships[i].Role = role
			return nil
		}
	}
	return nil
}

func (r *GroupRepository) DeleteMembership(_ context.Context, groupID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.deleteMembershipLocked(groupID, userID), nil
}

func (r *GroupRepository) CountDistinctMemberships(_ context.Context, userID string, groupIDs []string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, m := range r.memberships {
		if m.UserID != userID {
			continue
		}
		if _, ok := wanted[m.GroupID]; ok {
			seen[m.GroupID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (r *GroupRepository) TransferCreator(_ context.Context, groupID, newCreatorID string, promote bool, departingUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	g.CreatedBy = newCreatorID
	r.groups[groupID] = g

	if promote {
		for i, m := range r.memberships {
			if m.GroupID == groupID && m.UserID == newCreatorID {
				r.memberships[i].Role = group.RoleAdmin
				break
			}
		}
	}

	r.deleteMembershipLocked(groupID, departingUserID)
	return nil
}

func (r *GroupRepository) CreateJoinRequest(_ context.Context, request group.JoinRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.requests {
		if existing.GroupID == request.GroupID && existing.RequestedBy == request.RequestedBy {
			return group.ErrDuplicate
		}
	}

	r.requests[request.ID] = request
	r.requestOrder = append(r.requestOrder, request.ID)
	return nil
}

func (r *GroupRepository) GetJoinRequest(_ context.Context, requestID string) (group.JoinRequest, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.requests[requestID]
	return request, ok, nil
}

func (r *GroupRepository) HasJoinRequest(_ context.Context, groupID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, request := range r.requests {
		if request.GroupID == groupID && request.RequestedBy == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *GroupRepository) ListJoinRequests(_ context.Context, groupID string) ([]group.JoinRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]group.JoinRequest, 0)
	for _, id := range r.requestOrder {
		if request := r.requests[id]; request.GroupID == groupID {
			out = append(out, request)
		}
	}
	return out, nil
}

func (r *GroupRepository) AcceptJoinRequest(_ context.Context, requestID string, m group.Membership) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[requestID]; !ok {
		return false, nil
	}
	delete(r.requests, requestID)
	r.requestOrder = removeID(r.requestOrder, requestID)

	// get-or-create: an existing membership is reused, not an error
	if !r.hasMembershipLocked(m.GroupID, m.UserID) {
		r.memberships = append(r.memberships, m)
	}
	return true, nil
}

func (r *GroupRepository) DeleteJoinRequest(_ context.Context, requestID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[requestID]; !ok {
		return false, nil
	}
	delete(r.requests, requestID)
	r.requestOrder = removeID(r.requestOrder, requestID)
	return true, nil
}

func (r *GroupRepository) hasMembershipLocked(groupID, userID string) bool {
	for _, m := range r.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return true
		}
	}
	return false
}

func (r *GroupRepository) createMembershipLocked(m group.Membership) error {
	if r.hasMembershipLocked(m.GroupID, m.UserID) {
		return group.ErrDuplicate
	}
	r.memberships = append(r.memberships, m)
	return nil
}

func (r *GroupRepository) deleteMembershipLocked(groupID, userID string) bool {
	for i, m := range r.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			r.memberships = append(r.memberships[:i], r.memberships[i+1:]...)
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

var _ group.Repository = (*GroupRepository)(nil)
