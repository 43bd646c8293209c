package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
	"github.com/riskibarqy/pokerdex/internal/domain/group"
	idgen "github.com/riskibarqy/pokerdex/internal/platform/id"
	"github.com/riskibarqy/pokerdex/internal/platform/slug"
)

const recentPostLimit = 10

// Outcome labels the result of a state-changing call whose nothing-to-do
// branches are informational, not errors. The HTTP layer renders them with a
// neutral tone instead of an error body.
type Outcome string

const (
	OutcomeRequested              Outcome = "requested"
	OutcomeAlreadyMember          Outcome = "already_member"
	OutcomeAlreadyRequested       Outcome = "already_requested"
	OutcomePromoted               Outcome = "promoted"
	OutcomeAlreadyAdmin           Outcome = "already_admin"
	OutcomeDemoted                Outcome = "demoted"
	OutcomeAlreadyMemberRole      Outcome = "already_member_role"
	OutcomeCreatorHasMaxPrivilege Outcome = "creator_has_max_privilege"
	OutcomeLeft                   Outcome = "left"
	OutcomeNotAMember             Outcome = "not_a_member"
	OutcomeCreatorTransferred     Outcome = "creator_transferred"
	OutcomeGroupDeleted           Outcome = "group_deleted"
)

type CreateGroupInput struct {
	ActorID     string
	Name        string
	Description string
}

type UpdateGroupInput struct {
	ActorID     string
	Slug        string
	Name        string
	Description string
}

// GroupList splits the group overview into the actor's own groups, with their
// aggregates, and the remaining groups open for a join request.
type GroupList struct {
	Mine   []group.Summary
	Others []group.Group
}

// GroupDetail is everything the group page needs in one call. PendingRequests
// is only populated when the actor can manage the group.
type GroupDetail struct {
	Group             group.Group
	Members           []group.Membership
	RecentPosts       []game.Post
	PendingRequests   []group.JoinRequest
	IsMember          bool
	IsCreator         bool
	CanManage         bool
	HasPendingRequest bool
}

type MembershipService struct {
	groupRepo group.Repository
	gameRepo  game.Repository
	authz     *Authorizer
	events    EventPublisher
	idGen     idgen.Generator
	now       func() time.Time
}

func NewMembershipService(
	groupRepo group.Repository,
	gameRepo game.Repository,
	authz *Authorizer,
	events EventPublisher,
	idGen idgen.Generator,
) *MembershipService {
	if events == nil {
		events = NopEventPublisher{}
	}
	return &MembershipService{
		groupRepo: groupRepo,
		gameRepo:  gameRepo,
		authz:     authz,
		events:    events,
		idGen:     idGen,
		now:       time.Now,
	}
}

// CreateGroup creates the group and the creator's ADMIN membership in one
// transaction. The slug derives from the name; collisions get a numeric
// suffix (poker-night, poker-night-2, poker-night-3).
func (s *MembershipService) CreateGroup(ctx context.Context, input CreateGroupInput) (group.Group, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MembershipService.CreateGroup")
	defer span.End()

	input.ActorID = strings.TrimSpace(input.ActorID)
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.ActorID == "" {
		return group.Group{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if input.Name == "" {
		return group.Group{}, fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}

	taken, err := s.groupRepo.NameExistsFold(ctx, input.Name, "")
	if err != nil {
		return group.Group{}, fmt.Errorf("check group name: %w", err)
	}
	if taken {
		return group.Group{}, fmt.Errorf("%w: %s", ErrDuplicateName, input.Name)
	}

	groupSlug, err := s.resolveSlug(ctx, input.Name)
	if err != nil {
		return group.Group{}, err
	}

	groupID, err := s.idGen.NewID()
	if err != nil {
		return group.Group{}, fmt.Errorf("generate group id: %w", err)
	}

	now := s.now().UTC()
	g := group.Group{
		ID:          groupID,
		Name:        input.Name,
		Slug:        groupSlug,
		Description: input.Description,
		CreatedBy:   input.ActorID,
		CreatedAt:   now,
	}
	admin := group.Membership{
		GroupID:  groupID,
		UserID:   input.ActorID,
		Role:     group.RoleAdmin,
		JoinedAt: now,
	}

	if err := s.groupRepo.CreateWithAdmin(ctx, g, admin); err != nil {
		if errors.Is(err, group.ErrDuplicate) {
			return group.Group{}, fmt.Errorf("%w: %s", ErrDuplicateName, input.Name)
		}
		return group.Group{}, fmt.Errorf("create group with admin: %w", err)
	}

	return g, nil
}

func (s *MembershipService) resolveSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "group"
	}

	candidate := base
	for n := 2; ; n++ {
		taken, err := s.groupRepo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check group slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = slug.WithSuffix(base, n)
	}
}

// ListGroups loads the actor's groups and the joinable rest in parallel.
func (s *MembershipService) ListGroups(ctx context.Context, actorID string) (GroupList, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return GroupList{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}

	var list GroupList

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		mine, err := s.groupRepo.ListSummariesByUser(ctx, actorID)
		if err != nil {
			return fmt.Errorf("list group summaries by user: %w", err)
		}
		list.Mine = mine
		return nil
	})
	p.Go(func(ctx context.Context) error {
		others, err := s.groupRepo.ListOthersByUser(ctx, actorID)
		if err != nil {
			return fmt.Errorf("list joinable groups: %w", err)
		}
		list.Others = others
		return nil
	})
	if err := p.Wait(); err != nil {
		return GroupList{}, err
	}

	return list, nil
}

func (s *MembershipService) GetGroup(ctx context.Context, actorID, groupSlug string) (GroupDetail, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MembershipService.GetGroup")
	defer span.End()

	actorID = strings.TrimSpace(actorID)
	groupSlug = strings.TrimSpace(groupSlug)
	if actorID == "" {
		return GroupDetail{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if groupSlug == "" {
		return GroupDetail{}, fmt.Errorf("%w: group slug is required", ErrInvalidInput)
	}

	g, exists, err := s.groupRepo.GetBySlug(ctx, groupSlug)
	if err != nil {
		return GroupDetail{}, fmt.Errorf("get group by slug: %w", err)
	}
	if !exists {
		return GroupDetail{}, fmt.Errorf("%w: group %s", ErrNotFound, groupSlug)
	}

	members, err := s.groupRepo.ListMemberships(ctx, g.ID)
	if err != nil {
		return GroupDetail{}, fmt.Errorf("list group memberships: %w", err)
	}
	sortMembers(members, g.CreatedBy)

	detail := GroupDetail{
		Group:     g,
		Members:   members,
		IsCreator: s.authz.IsGroupCreator(g, actorID),
	}
	for _, m := range members {
		if m.UserID == actorID {
			detail.IsMember = true
			detail.CanManage = detail.IsCreator || m.Role == group.RoleAdmin
			break
		}
	}
	if detail.IsCreator {
		detail.CanManage = true
	}

	posts, err := s.gameRepo.ListPostsByGroup(ctx, g.ID, recentPostLimit)
	if err != nil {
		return GroupDetail{}, fmt.Errorf("list recent posts for group: %w", err)
	}
	detail.RecentPosts = posts

	if detail.CanManage {
		requests, err := s.groupRepo.ListJoinRequests(ctx, g.ID)
		if err != nil {
			return GroupDetail{}, fmt.Errorf("list join requests: %w", err)
		}
		detail.PendingRequests = requests
	}
	if !detail.IsMember {
		pending, err := s.groupRepo.HasJoinRequest(ctx, g.ID, actorID)
		if err != nil {
			return GroupDetail{}, fmt.Errorf("check pending join request: %w", err)
		}
		detail.HasPendingRequest = pending
	}

	return detail, nil
}

// sortMembers orders the member list for display: creator first, then admins,
// then members, each bucket by user id.
func sortMembers(members []group.Membership, creatorID string) {
	rank := func(m group.Membership) int {
		switch {
		case m.UserID == creatorID:
			return 0
		case m.Role == group.RoleAdmin:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		ri, rj := rank(members[i]), rank(members[j])
		if ri != rj {
			return ri < rj
		}
		return members[i].UserID < members[j].UserID
	})
}

// UpdateGroup renames or re-describes the group. The slug never changes after
// creation so existing links keep resolving.
func (s *MembershipService) UpdateGroup(ctx context.Context, input UpdateGroupInput) (group.Group, error) {
	input.ActorID = strings.TrimSpace(input.ActorID)
	input.Slug = strings.TrimSpace(input.Slug)
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.ActorID == "" {
		return group.Group{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if input.Slug == "" {
		return group.Group{}, fmt.Errorf("%w: group slug is required", ErrInvalidInput)
	}
	if input.Name == "" {
		return group.Group{}, fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}

	g, err := s.requireManagedGroup(ctx, input.ActorID, input.Slug)
	if err != nil {
		return group.Group{}, err
	}

	if !strings.EqualFold(g.Name, input.Name) {
		taken, err := s.groupRepo.NameExistsFold(ctx, input.Name, g.ID)
		if err != nil {
			return group.Group{}, fmt.Errorf("check group name: %w", err)
		}
		if taken {
			return group.Group{}, fmt.Errorf("%w: %s", ErrDuplicateName, input.Name)
		}
	}

	if err := s.groupRepo.Update(ctx, g.ID, input.Name, input.Description); err != nil {
		if errors.Is(err, group.ErrDuplicate) {
			return group.Group{}, fmt.Errorf("%w: %s", ErrDuplicateName, input.Name)
		}
		return group.Group{}, fmt.Errorf("update group: %w", err)
	}

	g.Name = input.Name
	g.Description = input.Description
	return g, nil
}

func (s *MembershipService) DeleteGroup(ctx context.Context, actorID, groupSlug string) error {
	actorID = strings.TrimSpace(actorID)
	groupSlug = strings.TrimSpace(groupSlug)
	if actorID == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if groupSlug == "" {
		return fmt.Errorf("%w: group slug is required", ErrInvalidInput)
	}

	g, err := s.requireManagedGroup(ctx, actorID, groupSlug)
	if err != nil {
		return err
	}

	if err := s.groupRepo.Delete(ctx, g.ID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// RequestJoin is idempotent: an existing membership or pending request yields
// an informational outcome, not an error.
func (s *MembershipService) RequestJoin(ctx context.Context, actorID, groupSlug string) (Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MembershipService.RequestJoin")
	defer span.End()

	actorID = strings.TrimSpace(actorID)
	groupSlug = strings.TrimSpace(groupSlug)
	if actorID == "" {
		return "", fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if groupSlug == "" {
		return "", fmt.Errorf("%w: group slug is required", ErrInvalidInput)
	}

	g, exists, err := s.groupRepo.GetBySlug(ctx, groupSlug)
	if err != nil {
		return "", fmt.Errorf("get group by slug: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("%w: group %s", ErrNotFound, groupSlug)
	}

	if _, isMember, err := s.groupRepo.GetMembership(ctx, g.ID, actorID); err != nil {
		return "", fmt.Errorf("check membership before join request: %w", err)
	} else if isMember || g.CreatedBy == actorID {
		return OutcomeAlreadyMember, nil
	}

	pending, err := s.groupRepo.HasJoinRequest(ctx, g.ID, actorID)
	if err != nil {
		return "", fmt.Errorf("check pending join request: %w", err)
	}
	if pending {
		return OutcomeAlreadyRequested, nil
	}

	requestID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate join request id: %w", err)
	}
	request := group.JoinRequest{
		ID:          requestID,
		GroupID:     g.ID,
		RequestedBy: actorID,
		RequestedAt: s.now().UTC(),
	}
	if err := s.groupRepo.CreateJoinRequest(ctx, request); err != nil {
		if errors.Is(err, group.ErrDuplicate) {
			// lost the race against a concurrent identical request
			return OutcomeAlreadyRequested, nil
		}
		return "", fmt.Errorf("create join request: %w", err)
	}

	return OutcomeRequested, nil
}

// AcceptRequest turns a pending request into a MEMBER membership and removes
// the request, atomically. An already-processed request id reports not found.
func (s *MembershipService) AcceptRequest(ctx context.Context, actorID, groupSlug, requestID string) (group.Membership, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MembershipService.AcceptRequest")
	defer span.End()

	g, request, err := s.requireManagedRequest(ctx, actorID, groupSlug, requestID)
	if err != nil {
		return group.Membership{}, err
	}

	membership := group.Membership{
		GroupID:  g.ID,
		UserID:   request.RequestedBy,
		Role:     group.RoleMember,
		JoinedAt: s.now().UTC(),
	}
	accepted, err := s.groupRepo.AcceptJoinRequest(ctx, request.ID, membership)
	if err != nil {
		return group.Membership{}, fmt.Errorf("accept join request: %w", err)
	}
	if !accepted {
		return group.Membership{}, fmt.Errorf("%w: join request %s", ErrNotFound, request.ID)
	}

	s.events.MemberJoined(ctx, g.ID, request.RequestedBy)
	return membership, nil
}

func (s *MembershipService) RejectRequest(ctx context.Context, actorID, groupSlug, requestID string) error {
	_, request, err := s.requireManagedRequest(ctx, actorID, groupSlug, requestID)
	if err != nil {
		return err
	}

	deleted, err := s.groupRepo.DeleteJoinRequest(ctx, request.ID)
	if err != nil {
		return fmt.Errorf("reject join request: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: join request %s", ErrNotFound, request.ID)
	}
	return nil
}

// Promote raises the target to ADMIN. Promoting the creator or an existing
// admin is reported, not rejected.
func (s *MembershipService) Promote(ctx context.Context, actorID, groupSlug, targetUserID string) (Outcome, error) {
	g, membership, err := s.requireManagedMember(ctx, actorID, groupSlug, targetUserID)
	if err != nil {
		return "", err
	}
	if membership.UserID == g.CreatedBy {
		return OutcomeCreatorHasMaxPrivilege, nil
	}
	if membership.Role == group.RoleAdmin {
		return OutcomeAlreadyAdmin, nil
	}

	if err := s.groupRepo.UpdateMembershipRole(ctx, g.ID, membership.UserID, group.RoleAdmin); err != nil {
		return "", fmt.Errorf("promote member: %w", err)
	}
	return OutcomePromoted, nil
}

// Demote lowers the target to MEMBER. The creator is immune to demotion.
func (s *MembershipService) Demote(ctx context.Context, actorID, groupSlug, targetUserID string) (Outcome, error) {
	g, membership, err := s.requireManagedMember(ctx, actorID, groupSlug, targetUserID)
	if err != nil {
		return "", err
	}
	if membership.UserID == g.CreatedBy {
		return OutcomeCreatorHasMaxPrivilege, nil
	}
	if membership.Role == group.RoleMember {
		return OutcomeAlreadyMemberRole, nil
	}

	if err := s.groupRepo.UpdateMembershipRole(ctx, g.ID, membership.UserID, group.RoleMember); err != nil {
		return "", fmt.Errorf("demote member: %w", err)
	}
	return OutcomeDemoted, nil
}

func (s *MembershipService) RemoveMember(ctx context.Context, actorID, groupSlug, targetUserID string) error {
	targetUserID = strings.TrimSpace(targetUserID)
	actorID = strings.TrimSpace(actorID)
	if targetUserID == "" {
		return fmt.Errorf("%w: target user id is required", ErrInvalidInput)
	}

	g, err := s.requireManagedGroup(ctx, actorID, strings.TrimSpace(groupSlug))
	if err != nil {
		return err
	}
	if targetUserID == g.CreatedBy {
		return fmt.Errorf("%w: the group creator cannot be removed", ErrForbidden)
	}
	if targetUserID == actorID {
		return fmt.Errorf("%w: use leave to remove yourself", ErrInvalidInput)
	}

	removed, err := s.groupRepo.DeleteMembership(ctx, g.ID, targetUserID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: user %s is not a member", ErrNotFound, targetUserID)
	}
	return nil
}

// Leave removes the actor from the group. A departing creator triggers
// succession first: the oldest-joined admin inherits the group; failing that
// the oldest-joined member inherits it and becomes ADMIN; with nobody left the
// group is deleted outright.
func (s *MembershipService) Leave(ctx context.Context, actorID, groupSlug string) (Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MembershipService.Leave")
	defer span.End()

	actorID = strings.TrimSpace(actorID)
	groupSlug = strings.TrimSpace(groupSlug)
	if actorID == "" {
		return "", fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if groupSlug == "" {
		return "", fmt.Errorf("%w: group slug is required", ErrInvalidInput)
	}

	g, exists, err := s.groupRepo.GetBySlug(ctx, groupSlug)
	if err != nil {
		return "", fmt.Errorf("get group by slug: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("%w: group %s", ErrNotFound, groupSlug)
	}

	if actorID != g.CreatedBy {
		left, err := s.groupRepo.DeleteMembership(ctx, g.ID, actorID)
		if err != nil {
			return "", fmt.Errorf("leave group: %w", err)
		}
		if !left {
			return OutcomeNotAMember, nil
		}
		return OutcomeLeft, nil
	}

	members, err := s.groupRepo.ListMemberships(ctx, g.ID)
	if err != nil {
		return "", fmt.Errorf("list memberships for succession: %w", err)
	}

	heir, found := pickSuccessor(members, actorID)
	if !found {
		if err := s.groupRepo.Delete(ctx, g.ID); err != nil {
			return "", fmt.Errorf("delete empty group on leave: %w", err)
		}
		return OutcomeGroupDeleted, nil
	}

	promote := heir.Role != group.RoleAdmin
	if err := s.groupRepo.TransferCreator(ctx, g.ID, heir.UserID, promote, actorID); err != nil {
		return "", fmt.Errorf("transfer group creator: %w", err)
	}
	return OutcomeCreatorTransferred, nil
}

// pickSuccessor chooses the heir among remaining members: the oldest-joined
// admin wins, then the oldest-joined member. ListMemberships already orders by
// joined_at then insertion, so the first hit per role is the right one.
func pickSuccessor(members []group.Membership, departingUserID string) (group.Membership, bool) {
	for _, m := range members {
		if m.UserID != departingUserID && m.Role == group.RoleAdmin {
			return m, true
		}
	}
	for _, m := range members {
		if m.UserID != departingUserID {
			return m, true
		}
	}
	return group.Membership{}, false
}

func (s *MembershipService) requireManagedGroup(ctx context.Context, actorID, groupSlug string) (group.Group, error) {
	g, exists, err := s.groupRepo.GetBySlug(ctx, groupSlug)
	if err != nil {
		return group.Group{}, fmt.Errorf("get group by slug: %w", err)
	}
	if !exists {
		return group.Group{}, fmt.Errorf("%w: group %s", ErrNotFound, groupSlug)
	}

	allowed, err := s.authz.CanManageGroup(ctx, g, actorID)
	if err != nil {
		return group.Group{}, err
	}
	if !allowed {
		return group.Group{}, fmt.Errorf("%w: group admin role required", ErrForbidden)
	}
	return g, nil
}

func (s *MembershipService) requireManagedRequest(ctx context.Context, actorID, groupSlug, requestID string) (group.Group, group.JoinRequest, error) {
	actorID = strings.TrimSpace(actorID)
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return group.Group{}, group.JoinRequest{}, fmt.Errorf("%w: request id is required", ErrInvalidInput)
	}

	g, err := s.requireManagedGroup(ctx, actorID, strings.TrimSpace(groupSlug))
	if err != nil {
		return group.Group{}, group.JoinRequest{}, err
	}

	request, exists, err := s.groupRepo.GetJoinRequest(ctx, requestID)
	if err != nil {
		return group.Group{}, group.JoinRequest{}, fmt.Errorf("get join request: %w", err)
	}
	if !exists || request.GroupID != g.ID {
		return group.Group{}, group.JoinRequest{}, fmt.Errorf("%w: join request %s", ErrNotFound, requestID)
	}
	return g, request, nil
}

func (s *MembershipService) requireManagedMember(ctx context.Context, actorID, groupSlug, targetUserID string) (group.Group, group.Membership, error) {
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return group.Group{}, group.Membership{}, fmt.Errorf("%w: target user id is required", ErrInvalidInput)
	}

	g, err := s.requireManagedGroup(ctx, strings.TrimSpace(actorID), strings.TrimSpace(groupSlug))
	if err != nil {
		return group.Group{}, group.Membership{}, err
	}

	membership, exists, err := s.groupRepo.GetMembership(ctx, g.ID, targetUserID)
	if err != nil {
		return group.Group{}, group.Membership{}, fmt.Errorf("get target membership: %w", err)
	}
	if !exists {
		if targetUserID == g.CreatedBy {
			// creator without an explicit membership row still outranks admins
			return g, group.Membership{GroupID: g.ID, UserID: targetUserID, Role: group.RoleAdmin}, nil
		}
		return group.Group{}, group.Membership{}, fmt.Errorf("%w: user %s is not a member", ErrNotFound, targetUserID)
	}
	return g, membership, nil
}
