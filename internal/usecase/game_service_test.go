package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/pokerdex/internal/infrastructure/repository/memory"
)

func newGameFixture() (*MembershipService, *GameService, *memory.GroupRepository, *memory.GameRepository) {
	groupRepo := memory.NewGroupRepository()
	gameRepo := memory.NewGameRepository()
	groupRepo.LinkGames(gameRepo)

	authz := NewAuthorizer(groupRepo, gameRepo)
	membership := NewMembershipService(groupRepo, gameRepo, authz, nil, &seqIDGenerator{prefix: "grp"})
	games := NewGameService(gameRepo, groupRepo, authz, nil, &seqIDGenerator{prefix: "game"})

	now := time.Date(2026, 8, 7, 19, 30, 0, 0, time.UTC)
	membership.now = func() time.Time { return now }
	games.now = func() time.Time { return now }
	return membership, games, groupRepo, gameRepo
}

func gameDate() time.Time {
	return time.Date(2026, 8, 14, 20, 0, 0, 0, time.UTC)
}

func TestGameService_CreateGame_FiltersToActorGroups(t *testing.T) {
	membership, games, _, gameRepo := newGameFixture()

	mine := mustCreateGroup(t, membership, "user-a", "Friday Game")
	foreign := mustCreateGroup(t, membership, "user-x", "Other Table")

	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Season opener",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{mine.ID, foreign.ID, mine.ID, "missing"},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	posted, err := gameRepo.PostedGroupIDs(t.Context(), g.ID)
	if err != nil {
		t.Fatalf("posted group ids failed: %v", err)
	}
	if len(posted) != 1 || posted[0] != mine.ID {
		t.Fatalf("expected game posted only to %s, got %v", mine.ID, posted)
	}
}

func TestGameService_CreateGame_NoValidGroups(t *testing.T) {
	membership, games, _, _ := newGameFixture()

	foreign := mustCreateGroup(t, membership, "user-x", "Other Table")

	_, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Nowhere to post",
		Date:       gameDate(),
		BuyInCents: 5000,
		GroupIDs:   []string{foreign.ID},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGameService_Eligibility_AllPostedGroupsRequired(t *testing.T) {
	membership, games, _, _ := newGameFixture()

	first := mustCreateGroup(t, membership, "user-a", "Friday Game")
	second := mustCreateGroup(t, membership, "user-a", "High Rollers")
	joinAsMember(t, membership, first.Slug, "user-b", "user-a")

	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Cross-group game",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{first.ID, second.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	// user-b belongs to one of the two posted groups
	_, err = games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-a",
		GameID:   g.ID,
		PlayerID: "user-b",
	})
	if !errors.Is(err, ErrIneligiblePlayer) {
		t.Fatalf("expected ErrIneligiblePlayer, got %v", err)
	}

	joinAsMember(t, membership, second.Slug, "user-b", "user-a")

	if _, err := games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-a",
		GameID:   g.ID,
		PlayerID: "user-b",
	}); err != nil {
		t.Fatalf("expected participation after joining both groups, got %v", err)
	}
}

func TestGameService_Eligibility_UnpostedGameAcceptsNobody(t *testing.T) {
	membership, games, _, _ := newGameFixture()

	g := mustCreateGroup(t, membership, "user-a", "Friday Game")
	created, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Orphaned game",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{g.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	// deleting the group cascades its postings away
	if err := membership.DeleteGroup(t.Context(), "user-a", g.Slug); err != nil {
		t.Fatalf("delete group failed: %v", err)
	}

	_, err = games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-a",
		GameID:   created.ID,
		PlayerID: "user-a",
	})
	if !errors.Is(err, ErrIneligiblePlayer) {
		t.Fatalf("expected ErrIneligiblePlayer for unposted game, got %v", err)
	}
}

func TestGameService_AddParticipation_Duplicate(t *testing.T) {
	membership, games, _, _ := newGameFixture()

	grp := mustCreateGroup(t, membership, "user-a", "Friday Game")
	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Weekly game",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{grp.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	if _, err := games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-a",
		GameID:   g.ID,
		PlayerID: "user-a",
	}); err != nil {
		t.Fatalf("first participation failed: %v", err)
	}

	_, err = games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-a",
		GameID:   g.ID,
		PlayerID: "user-a",
	})
	if !errors.Is(err, ErrDuplicateParticipation) {
		t.Fatalf("expected ErrDuplicateParticipation, got %v", err)
	}
}

func TestGameService_TotalPot(t *testing.T) {
	membership, games, _, _ := newGameFixture()

	grp := mustCreateGroup(t, membership, "user-a", "Friday Game")
	joinAsMember(t, membership, grp.Slug, "user-b", "user-a")

	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Pot check",
		Date:       gameDate(),
		BuyInCents: 20000,
		GroupIDs:   []string{grp.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	if _, err := games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:           "user-a",
		GameID:            g.ID,
		PlayerID:          "user-b",
		FinalBalanceCents: 10000,
		RebuyCents:        5000,
	}); err != nil {
		t.Fatalf("add participation failed: %v", err)
	}

	detail, err := games.GetGame(t.Context(), "user-a", g.ID)
	if err != nil {
		t.Fatalf("get game failed: %v", err)
	}
	// buy-in 200 plus rebuy 50
	if detail.TotalPotCents != 25000 {
		t.Fatalf("expected pot of 25000, got %d", detail.TotalPotCents)
	}

	if _, err := games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:           "user-a",
		GameID:            g.ID,
		PlayerID:          "user-a",
		FinalBalanceCents: -10000,
	}); err != nil {
		t.Fatalf("add second participation failed: %v", err)
	}

	detail, err = games.GetGame(t.Context(), "user-a", g.ID)
	if err != nil {
		t.Fatalf("get game failed: %v", err)
	}
	if detail.TotalPotCents != 45000 {
		t.Fatalf("expected pot of 45000, got %d", detail.TotalPotCents)
	}
}

func TestGameService_UpdateGame_SyncsPostsAndKeepsOwner(t *testing.T) {
	membership, games, _, gameRepo := newGameFixture()

	first := mustCreateGroup(t, membership, "user-a", "Friday Game")
	second := mustCreateGroup(t, membership, "user-a", "High Rollers")

	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Movable game",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{first.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	updated, err := games.UpdateGame(t.Context(), UpdateGameInput{
		ActorID:    "user-a",
		GameID:     g.ID,
		Title:      "Moved game",
		Date:       gameDate().Add(24 * time.Hour),
		Location:   "back room",
		BuyInCents: 15000,
		GroupIDs:   []string{second.ID},
	})
	if err != nil {
		t.Fatalf("update game failed: %v", err)
	}
	if updated.CreatedBy != "user-a" {
		t.Fatalf("expected owner unchanged, got %s", updated.CreatedBy)
	}

	posted, err := gameRepo.PostedGroupIDs(t.Context(), g.ID)
	if err != nil {
		t.Fatalf("posted group ids failed: %v", err)
	}
	if len(posted) != 1 || posted[0] != second.ID {
		t.Fatalf("expected posting moved to %s, got %v", second.ID, posted)
	}
}

func TestGameService_UpdateGame_Authorization(t *testing.T) {
	membership, games, _, _ := newGameFixture()

	grp := mustCreateGroup(t, membership, "user-a", "Friday Game")
	joinAsMember(t, membership, grp.Slug, "user-b", "user-a")
	joinAsMember(t, membership, grp.Slug, "user-c", "user-a")

	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-b",
		Title:      "Member game",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{grp.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	// plain member, neither owner nor group creator
	_, err = games.UpdateGame(t.Context(), UpdateGameInput{
		ActorID:    "user-c",
		GameID:     g.ID,
		Title:      "Hijacked",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{grp.ID},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// the posted group's creator can edit someone else's game
	if _, err := games.UpdateGame(t.Context(), UpdateGameInput{
		ActorID:    "user-a",
		GameID:     g.ID,
		Title:      "Renamed by group creator",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{grp.ID},
	}); err != nil {
		t.Fatalf("group creator edit failed: %v", err)
	}
}

func TestGameService_ParticipationEditDeleteRules(t *testing.T) {
	membership, games, _, _ := newGameFixture()

	grp := mustCreateGroup(t, membership, "user-a", "Friday Game")
	joinAsMember(t, membership, grp.Slug, "user-b", "user-a")
	joinAsMember(t, membership, grp.Slug, "user-c", "user-a")

	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-b",
		Title:      "Rules game",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{grp.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}
	p, err := games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-b",
		GameID:   g.ID,
		PlayerID: "user-c",
	})
	if err != nil {
		t.Fatalf("add participation failed: %v", err)
	}

	// the player can edit their own row
	if _, err := games.UpdateParticipation(t.Context(), UpdateParticipationInput{
		ActorID:           "user-c",
		GameID:            g.ID,
		ParticipationID:   p.ID,
		FinalBalanceCents: 2500,
	}); err != nil {
		t.Fatalf("self edit failed: %v", err)
	}

	// the posted group's creator can edit but not delete
	if _, err := games.UpdateParticipation(t.Context(), UpdateParticipationInput{
		ActorID:         "user-a",
		GameID:          g.ID,
		ParticipationID: p.ID,
	}); err != nil {
		t.Fatalf("group creator edit failed: %v", err)
	}
	if err := games.DeleteParticipation(t.Context(), "user-a", g.ID, p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for group creator delete, got %v", err)
	}

	// the game owner can delete
	if err := games.DeleteParticipation(t.Context(), "user-b", g.ID, p.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if err := games.DeleteParticipation(t.Context(), "user-b", g.ID, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for gone participation, got %v", err)
	}
}

func TestGroupGameLifecycle(t *testing.T) {
	membership, games, groupRepo, _ := newGameFixture()

	grp, err := membership.CreateGroup(t.Context(), CreateGroupInput{ActorID: "user-a", Name: "Friday Game"})
	if err != nil {
		t.Fatalf("create group failed: %v", err)
	}
	admin, exists, _ := groupRepo.GetMembership(t.Context(), grp.ID, "user-a")
	if !exists || admin.Role != "ADMIN" {
		t.Fatalf("expected user-a as sole admin, exists=%v role=%s", exists, admin.Role)
	}

	if _, err := membership.RequestJoin(t.Context(), "user-b", grp.Slug); err != nil {
		t.Fatalf("request join failed: %v", err)
	}
	if _, stillOut, _ := groupRepo.GetMembership(t.Context(), grp.ID, "user-b"); stillOut {
		t.Fatal("expected user-b to stay out until accepted")
	}

	requests, _ := groupRepo.ListJoinRequests(t.Context(), grp.ID)
	if len(requests) != 1 {
		t.Fatalf("expected one pending request, got %d", len(requests))
	}
	accepted, err := membership.AcceptRequest(t.Context(), "user-a", grp.Slug, requests[0].ID)
	if err != nil {
		t.Fatalf("accept request failed: %v", err)
	}
	if accepted.Role != "MEMBER" {
		t.Fatalf("expected MEMBER role, got %s", accepted.Role)
	}
	if left, _ := groupRepo.ListJoinRequests(t.Context(), grp.ID); len(left) != 0 {
		t.Fatalf("expected request consumed, %d left", len(left))
	}

	g, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "First table",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{grp.ID},
	})
	if err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	if _, err := games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-a",
		GameID:   g.ID,
		PlayerID: "user-b",
	}); err != nil {
		t.Fatalf("expected member user-b to be eligible, got %v", err)
	}

	_, err = games.AddParticipation(t.Context(), AddParticipationInput{
		ActorID:  "user-a",
		GameID:   g.ID,
		PlayerID: "user-c",
	})
	if !errors.Is(err, ErrIneligiblePlayer) {
		t.Fatalf("expected outsider user-c to be ineligible, got %v", err)
	}
}
