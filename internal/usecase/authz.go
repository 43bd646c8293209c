package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
	"github.com/riskibarqy/pokerdex/internal/domain/group"
)

// Authorizer holds the permission checks shared by the services and the HTTP
// layer. Checks never mutate state and are safe to call on read paths, for
// example to decide whether an edit control should render.
type Authorizer struct {
	groupRepo group.Repository
	gameRepo  game.Repository
}

func NewAuthorizer(groupRepo group.Repository, gameRepo game.Repository) *Authorizer {
	return &Authorizer{
		groupRepo: groupRepo,
		gameRepo:  gameRepo,
	}
}

// IsGroupAdmin reports whether the user holds an ADMIN membership row.
// Creator status is tracked on the group itself, not through role; see
// CanManageGroup for the combined gate.
func (a *Authorizer) IsGroupAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	membership, exists, err := a.groupRepo.GetMembership(ctx, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("get membership for admin check: %w", err)
	}
	return exists && membership.Role == group.RoleAdmin, nil
}

func (a *Authorizer) IsGroupCreator(g group.Group, userID string) bool {
	return g.CreatedBy == userID
}

func (a *Authorizer) IsGameOwner(g game.Game, userID string) bool {
	return g.CreatedBy == userID
}

// IsGroupCreatorOfAnyPostedGroup reports whether the user created at least
// one of the groups the game is posted to.
func (a *Authorizer) IsGroupCreatorOfAnyPostedGroup(ctx context.Context, gameID, userID string) (bool, error) {
	groupIDs, err := a.gameRepo.PostedGroupIDs(ctx, gameID)
	if err != nil {
		return false, fmt.Errorf("list posted groups for creator check: %w", err)
	}
	for _, groupID := range groupIDs {
		g, exists, err := a.groupRepo.GetByID(ctx, groupID)
		if err != nil {
			return false, fmt.Errorf("get posted group for creator check: %w", err)
		}
		if exists && g.CreatedBy == userID {
			return true, nil
		}
	}
	return false, nil
}

// CanManageGroup is the admin gate for group mutations. The creator always
// has maximal privilege even without an explicit ADMIN membership row.
func (a *Authorizer) CanManageGroup(ctx context.Context, g group.Group, userID string) (bool, error) {
	if a.IsGroupCreator(g, userID) {
		return true, nil
	}
	return a.IsGroupAdmin(ctx, g.ID, userID)
}

// CanManageGame gates game edit and delete: the game owner, or the creator of
// any group the game is posted to.
func (a *Authorizer) CanManageGame(ctx context.Context, g game.Game, userID string) (bool, error) {
	if a.IsGameOwner(g, userID) {
		return true, nil
	}
	return a.IsGroupCreatorOfAnyPostedGroup(ctx, g.ID, userID)
}
