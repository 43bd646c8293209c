package usecase

import (
	"errors"
	"testing"
	"time"
)

func TestStatsService_GroupStats(t *testing.T) {
	membership, games, groupRepo, gameRepo := newGameFixture()
	stats := NewStatsService(groupRepo, gameRepo)

	grp := mustCreateGroup(t, membership, "user-a", "Friday Game")
	joinAsMember(t, membership, grp.Slug, "user-b", "user-a")

	first, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Week one",
		Date:       time.Date(2026, 8, 7, 20, 0, 0, 0, time.UTC),
		BuyInCents: 10000,
		GroupIDs:   []string{grp.ID},
	})
	if err != nil {
		t.Fatalf("create first game failed: %v", err)
	}
	second, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Week two",
		Date:       time.Date(2026, 8, 14, 20, 0, 0, 0, time.UTC),
		BuyInCents: 20000,
		GroupIDs:   []string{grp.ID},
	})
	if err != nil {
		t.Fatalf("create second game failed: %v", err)
	}

	seed := []AddParticipationInput{
		{ActorID: "user-a", GameID: first.ID, PlayerID: "user-a", FinalBalanceCents: -5000},
		{ActorID: "user-a", GameID: first.ID, PlayerID: "user-b", FinalBalanceCents: 5000, RebuyCents: 10000},
		{ActorID: "user-a", GameID: second.ID, PlayerID: "user-b", FinalBalanceCents: 30000},
	}
	for _, input := range seed {
		if _, err := games.AddParticipation(t.Context(), input); err != nil {
			t.Fatalf("add participation for %s failed: %v", input.PlayerID, err)
		}
	}

	got, err := stats.GroupStats(t.Context(), "user-a", grp.Slug)
	if err != nil {
		t.Fatalf("group stats failed: %v", err)
	}

	if got.GameCount != 2 {
		t.Fatalf("expected 2 games, got %d", got.GameCount)
	}
	// game one: 2x100 buy-in + 100 rebuy; game two: 1x200 buy-in
	if got.TotalPotCents != 50000 {
		t.Fatalf("expected total pot 50000, got %d", got.TotalPotCents)
	}

	if len(got.Players) != 2 {
		t.Fatalf("expected 2 player ledgers, got %d", len(got.Players))
	}
	// best net balance first
	top := got.Players[0]
	if top.PlayerID != "user-b" {
		t.Fatalf("expected user-b on top, got %s", top.PlayerID)
	}
	if top.GamesPlayed != 2 || top.TotalBuyInCents != 30000 || top.TotalRebuyCents != 10000 || top.NetBalanceCents != 35000 {
		t.Fatalf("unexpected ledger for user-b: %+v", top)
	}
	bottom := got.Players[1]
	if bottom.PlayerID != "user-a" || bottom.GamesPlayed != 1 || bottom.NetBalanceCents != -5000 {
		t.Fatalf("unexpected ledger for user-a: %+v", bottom)
	}
}

func TestStatsService_GroupStats_MembersOnly(t *testing.T) {
	membership, _, groupRepo, gameRepo := newGameFixture()
	stats := NewStatsService(groupRepo, gameRepo)

	grp := mustCreateGroup(t, membership, "user-a", "Friday Game")

	_, err := stats.GroupStats(t.Context(), "user-z", grp.Slug)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}

	got, err := stats.GroupStats(t.Context(), "user-a", grp.Slug)
	if err != nil {
		t.Fatalf("group stats for creator failed: %v", err)
	}
	if got.GameCount != 0 || len(got.Players) != 0 {
		t.Fatalf("expected empty ledger, got %+v", got)
	}
}
