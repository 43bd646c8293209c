package group

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by stores when an insert hits a uniqueness
// constraint. Services treat it as the "already exists" branch of
// get-or-create flows, never as a crash.
var ErrDuplicate = errors.New("duplicate record")

type Repository interface {
	// CreateWithAdmin persists the group and its creator's ADMIN membership
	// atomically: both rows commit or neither does.
	CreateWithAdmin(ctx context.Context, g Group, admin Membership) error
	GetByID(ctx context.Context, groupID string) (Group, bool, error)
	GetBySlug(ctx context.Context, slug string) (Group, bool, error)
	NameExistsFold(ctx context.Context, name, excludeGroupID string) (bool, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, groupID, name, description string) error
	// Delete removes the group; memberships, join requests and game posts
	// cascade with it.
	Delete(ctx context.Context, groupID string) error

	ListSummariesByUser(ctx context.Context, userID string) ([]Summary, error)
	ListOthersByUser(ctx context.Context, userID string) ([]Group, error)
	ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error)

	ListMemberships(ctx context.Context, groupID string) ([]Membership, error)
	GetMembership(ctx context.Context, groupID, userID string) (Membership, bool, error)
	CreateMembership(ctx context.Context, m Membership) error
	UpdateMembershipRole(ctx context.Context, groupID, userID string, role Role) error
	DeleteMembership(ctx context.Context, groupID, userID string) (bool, error)
	// CountDistinctMemberships reports how many of groupIDs the user belongs
	// to, counting each group at most once.
	CountDistinctMemberships(ctx context.Context, userID string, groupIDs []string) (int, error)

	// TransferCreator reassigns created_by to newCreator, optionally promotes
	// them to ADMIN, and deletes the departing creator's membership, all in
	// one transaction.
	TransferCreator(ctx context.Context, groupID, newCreatorID string, promote bool, departingUserID string) error

	CreateJoinRequest(ctx context.Context, r JoinRequest) error
	GetJoinRequest(ctx context.Context, requestID string) (JoinRequest, bool, error)
	HasJoinRequest(ctx context.Context, groupID, userID string) (bool, error)
	ListJoinRequests(ctx context.Context, groupID string) ([]JoinRequest, error)
	// AcceptJoinRequest deletes the request and inserts the membership if
	// absent, atomically. Returns false when the request no longer exists.
	AcceptJoinRequest(ctx context.Context, requestID string, m Membership) (bool, error)
	DeleteJoinRequest(ctx context.Context, requestID string) (bool, error)
}
