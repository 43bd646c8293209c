package cache

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/pokerdex/internal/domain/group"
	"github.com/riskibarqy/pokerdex/internal/infrastructure/repository/memory"
	basecache "github.com/riskibarqy/pokerdex/internal/platform/cache"
)

func newCachedGroupRepo(t *testing.T) *GroupRepository {
	t.Helper()
	return NewGroupRepository(memory.NewGroupRepository(), basecache.NewStore(time.Minute))
}

func seedGroup(t *testing.T, repo *GroupRepository, id, name, slug string) {
	t.Helper()
	err := repo.CreateWithAdmin(context.Background(), group.Group{
		ID:        id,
		Name:      name,
		Slug:      slug,
		CreatedBy: "user-a",
		CreatedAt: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
	}, group.Membership{
		GroupID:  id,
		UserID:   "user-a",
		Role:     group.RoleAdmin,
		JoinedAt: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
}

func TestGroupRepository_GetByIDServesCachedValue(t *testing.T) {
	repo := newCachedGroupRepo(t)
	seedGroup(t, repo, "grp-1", "Friday Night", "friday-night")

	first, exists, err := repo.GetByID(context.Background(), "grp-1")
	if err != nil || !exists {
		t.Fatalf("first read: exists=%v err=%v", exists, err)
	}
	second, exists, err := repo.GetByID(context.Background(), "grp-1")
	if err != nil || !exists {
		t.Fatalf("second read: exists=%v err=%v", exists, err)
	}
	if first.Name != second.Name || second.Name != "Friday Night" {
		t.Fatalf("unexpected cached group: %+v", second)
	}
}

func TestGroupRepository_UpdateInvalidatesCachedReads(t *testing.T) {
	repo := newCachedGroupRepo(t)
	seedGroup(t, repo, "grp-1", "Friday Night", "friday-night")

	if _, _, err := repo.GetByID(context.Background(), "grp-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	if err := repo.Update(context.Background(), "grp-1", "Saturday Night", "moved"); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, exists, err := repo.GetByID(context.Background(), "grp-1")
	if err != nil || !exists {
		t.Fatalf("read after update: exists=%v err=%v", exists, err)
	}
	if got.Name != "Saturday Night" {
		t.Fatalf("stale name after update: %q", got.Name)
	}
}

func TestGroupRepository_MembershipWriteRefreshesUserLists(t *testing.T) {
	repo := newCachedGroupRepo(t)
	seedGroup(t, repo, "grp-1", "Friday Night", "friday-night")

	ids, err := repo.ListGroupIDsByUser(context.Background(), "user-b")
	if err != nil {
		t.Fatalf("list before join: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("unexpected groups before join: %+v", ids)
	}

	err = repo.CreateMembership(context.Background(), group.Membership{
		GroupID:  "grp-1",
		UserID:   "user-b",
		Role:     group.RoleMember,
		JoinedAt: time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create membership: %v", err)
	}

	ids, err = repo.ListGroupIDsByUser(context.Background(), "user-b")
	if err != nil {
		t.Fatalf("list after join: %v", err)
	}
	if len(ids) != 1 || ids[0] != "grp-1" {
		t.Fatalf("unexpected groups after join: %+v", ids)
	}
}

func TestGroupRepository_AcceptJoinRequestClearsPendingList(t *testing.T) {
	repo := newCachedGroupRepo(t)
	seedGroup(t, repo, "grp-1", "Friday Night", "friday-night")

	err := repo.CreateJoinRequest(context.Background(), group.JoinRequest{
		ID:          "req-1",
		GroupID:     "grp-1",
		RequestedBy: "user-b",
		RequestedAt: time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create join request: %v", err)
	}
	pending, err := repo.ListJoinRequests(context.Background(), "grp-1")
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending before accept: len=%d err=%v", len(pending), err)
	}

	accepted, err := repo.AcceptJoinRequest(context.Background(), "req-1", group.Membership{
		GroupID:  "grp-1",
		UserID:   "user-b",
		Role:     group.RoleMember,
		JoinedAt: time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC),
	})
	if err != nil || !accepted {
		t.Fatalf("accept: accepted=%v err=%v", accepted, err)
	}

	pending, err = repo.ListJoinRequests(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("pending after accept: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending requests, got %+v", pending)
	}
}
