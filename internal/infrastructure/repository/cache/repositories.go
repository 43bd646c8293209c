package cache

import (
	"context"

	"github.com/riskibarqy/pokerdex/internal/domain/group"
	basecache "github.com/riskibarqy/pokerdex/internal/platform/cache"
)

const (
	groupByIDPrefix       = "group:id:"
	groupBySlugPrefix     = "group:slug:"
	groupSummariesPrefix  = "group:summaries:user:"
	groupOthersPrefix     = "group:others:user:"
	groupIDsByUserPrefix  = "group:ids:user:"
	membershipListPrefix  = "group:memberships:"
	membershipPrefix      = "group:membership:"
	joinRequestListPrefix = "group:join-requests:"
)

// GroupRepository caches the read paths that back list and detail pages.
// Existence checks stay uncached so uniqueness guards always see fresh rows.
type GroupRepository struct {
	next  group.Repository
	cache *basecache.Store
}

func NewGroupRepository(next group.Repository, cache *basecache.Store) *GroupRepository {
	return &GroupRepository{next: next, cache: cache}
}

func (r *GroupRepository) CreateWithAdmin(ctx context.Context, g group.Group, admin group.Membership) error {
	if err := r.next.CreateWithAdmin(ctx, g, admin); err != nil {
		return err
	}
	r.invalidateGroup(ctx, g.ID, g.Slug)
	return nil
}

func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (group.Group, bool, error) {
	key := groupByIDPrefix + groupID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, groupID)
		if err != nil {
			return nil, err
		}
		return cachedGroup{value: item, exists: exists}, nil
	})
	if err != nil {
		return group.Group{}, false, err
	}

	cached, _ := v.(cachedGroup)
	return cached.value, cached.exists, nil
}

func (r *GroupRepository) GetBySlug(ctx context.Context, slug string) (group.Group, bool, error) {
	key := groupBySlugPrefix + slug
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		return cachedGroup{value: item, exists: exists}, nil
	})
	if err != nil {
		return group.Group{}, false, err
	}

	cached, _ := v.(cachedGroup)
	return cached.value, cached.exists, nil
}

type cachedGroup struct {
	value  group.Group
	exists bool
}

func (r *GroupRepository) NameExistsFold(ctx context.Context, name, excludeGroupID string) (bool, error) {
	return r.next.NameExistsFold(ctx, name, excludeGroupID)
}

func (r *GroupRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.next.SlugExists(ctx, slug)
}

func (r *GroupRepository) Update(ctx context.Context, groupID, name, description string) error {
	if err := r.next.Update(ctx, groupID, name, description); err != nil {
		return err
	}
	r.cache.Delete(ctx, groupByIDPrefix+groupID)
	r.cache.DeletePrefix(ctx, groupBySlugPrefix)
	r.cache.DeletePrefix(ctx, groupSummariesPrefix)
	r.cache.DeletePrefix(ctx, groupOthersPrefix)
	return nil
}

func (r *GroupRepository) Delete(ctx context.Context, groupID string) error {
	if err := r.next.Delete(ctx, groupID); err != nil {
		return err
	}
	r.invalidateGroup(ctx, groupID, "")
	r.cache.Delete(ctx, membershipListPrefix+groupID)
	r.cache.DeletePrefix(ctx, membershipPrefix+groupID+":")
	r.cache.Delete(ctx, joinRequestListPrefix+groupID)
	return nil
}

func (r *GroupRepository) ListSummariesByUser(ctx context.Context, userID string) ([]group.Summary, error) {
	key := groupSummariesPrefix + userID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListSummariesByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return append([]group.Summary(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]group.Summary)
	return append([]group.Summary(nil), items...), nil
}

func (r *GroupRepository) ListOthersByUser(ctx context.Context, userID string) ([]group.Group, error) {
	key := groupOthersPrefix + userID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListOthersByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return append([]group.Group(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]group.Group)
	return append([]group.Group(nil), items...), nil
}

func (r *GroupRepository) ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	key := groupIDsByUserPrefix + userID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListGroupIDsByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return append([]string(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]string)
	return append([]string(nil), items...), nil
}

func (r *GroupRepository) ListMemberships(ctx context.Context, groupID string) ([]group.Membership, error) {
	key := membershipListPrefix + groupID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListMemberships(ctx, groupID)
		if err != nil {
			return nil, err
		}
		return append([]group.Membership(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]group.Membership)
	return append([]group.Membership(nil), items...), nil
}

func (r *GroupRepository) GetMembership(ctx context.Context, groupID, userID string) (group.Membership, bool, error) {
	key := membershipKey(groupID, userID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetMembership(ctx, groupID, userID)
		if err != nil {
			return nil, err
		}
		return cachedMembership{value: item, exists: exists}, nil
	})
	if err != nil {
		return group.Membership{}, false, err
	}

	cached, _ := v.(cachedMembership)
	return cached.value, cached.exists, nil
}

type cachedMembership struct {
	value  group.Membership
	exists bool
}

func (r *GroupRepository) CreateMembership(ctx context.Context, m group.Membership) error {
	if err := r.next.CreateMembership(ctx, m); err != nil {
		return err
	}
	r.invalidateMembership(ctx, m.GroupID, m.UserID)
	return nil
}

func (r *GroupRepository) UpdateMembershipRole(ctx context.Context, groupID, userID string, role group.Role) error {
	if err := r.next.UpdateMembershipRole(ctx, groupID, userID, role); err != nil {
		return err
	}
	r.invalidateMembership(ctx, groupID, userID)
	return nil
}

func (r *GroupRepository) DeleteMembership(ctx context.Context, groupID, userID string) (bool, error) {
	deleted, err := r.next.DeleteMembership(ctx, groupID, userID)
	if err != nil {
		return false, err
	}
	if deleted {
		r.invalidateMembership(ctx, groupID, userID)
	}
	return deleted, nil
}

func (r *GroupRepository) CountDistinctMemberships(ctx context.Context, userID string, groupIDs []string) (int, error) {
	return r.next.CountDistinctMemberships(ctx, userID, groupIDs)
}

func (r *GroupRepository) TransferCreator(ctx context.Context, groupID, newCreatorID string, promote bool, departingUserID string) error {
	if err := r.next.TransferCreator(ctx, groupID, newCreatorID, promote, departingUserID); err != nil {
		return err
	}
	r.cache.Delete(ctx, groupByIDPrefix+groupID)
	r.cache.DeletePrefix(ctx, groupBySlugPrefix)
	r.cache.Delete(ctx, membershipListPrefix+groupID)
	r.cache.DeletePrefix(ctx, membershipPrefix+groupID+":")
	r.cache.DeletePrefix(ctx, groupSummariesPrefix)
	r.cache.DeletePrefix(ctx, groupOthersPrefix)
	r.cache.DeletePrefix(ctx, groupIDsByUserPrefix)
	return nil
}

func (r *GroupRepository) CreateJoinRequest(ctx context.Context, req group.JoinRequest) error {
	if err := r.next.CreateJoinRequest(ctx, req); err != nil {
		return err
	}
	r.cache.Delete(ctx, joinRequestListPrefix+req.GroupID)
	return nil
}

func (r *GroupRepository) GetJoinRequest(ctx context.Context, requestID string) (group.JoinRequest, bool, error) {
	return r.next.GetJoinRequest(ctx, requestID)
}

func (r *GroupRepository) HasJoinRequest(ctx context.Context, groupID, userID string) (bool, error) {
	return r.next.HasJoinRequest(ctx, groupID, userID)
}

func (r *GroupRepository) ListJoinRequests(ctx context.Context, groupID string) ([]group.JoinRequest, error) {
	key := joinRequestListPrefix + groupID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListJoinRequests(ctx, groupID)
		if err != nil {
			return nil, err
		}
		return append([]group.JoinRequest(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]group.JoinRequest)
	return append([]group.JoinRequest(nil), items...), nil
}

func (r *GroupRepository) AcceptJoinRequest(ctx context.Context, requestID string, m group.Membership) (bool, error) {
	accepted, err := r.next.AcceptJoinRequest(ctx, requestID, m)
	if err != nil {
		return false, err
	}
	if accepted {
		r.cache.Delete(ctx, joinRequestListPrefix+m.GroupID)
		r.invalidateMembership(ctx, m.GroupID, m.UserID)
	}
	return accepted, nil
}

func (r *GroupRepository) DeleteJoinRequest(ctx context.Context, requestID string) (bool, error) {
	deleted, err := r.next.DeleteJoinRequest(ctx, requestID)
	if err != nil {
		return false, err
	}
	if deleted {
		r.cache.DeletePrefix(ctx, joinRequestListPrefix)
	}
	return deleted, nil
}

func (r *GroupRepository) invalidateGroup(ctx context.Context, groupID, slug string) {
	r.cache.Delete(ctx, groupByIDPrefix+groupID)
	if slug != "" {
		r.cache.Delete(ctx, groupBySlugPrefix+slug)
	} else {
		r.cache.DeletePrefix(ctx, groupBySlugPrefix)
	}
	r.cache.DeletePrefix(ctx, groupSummariesPrefix)
	r.cache.DeletePrefix(ctx, groupOthersPrefix)
	r.cache.DeletePrefix(ctx, groupIDsByUserPrefix)
}

func (r *GroupRepository) invalidateMembership(ctx context.Context, groupID, userID string) {
	r.cache.Delete(ctx, membershipListPrefix+groupID)
	r.cache.Delete(ctx, membershipKey(groupID, userID))
	r.cache.Delete(ctx, groupSummariesPrefix+userID)
	r.cache.Delete(ctx, groupOthersPrefix+userID)
	r.cache.Delete(ctx, groupIDsByUserPrefix+userID)
	r.cache.DeletePrefix(ctx, groupSummariesPrefix)
	r.cache.DeletePrefix(ctx, groupOthersPrefix)
}

func membershipKey(groupID, userID string) string {
	return membershipPrefix + groupID + ":" + userID
}
