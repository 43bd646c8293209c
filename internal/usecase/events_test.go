package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/pokerdex/internal/infrastructure/repository/memory"
)

type eventPublisherMock struct {
	mock.Mock
}

func (m *eventPublisherMock) MemberJoined(_ context.Context, groupID, userID string) {
	m.Called(groupID, userID)
}

func (m *eventPublisherMock) GamePosted(_ context.Context, gameID, groupID string) {
	m.Called(gameID, groupID)
}

func TestMembershipService_AcceptRequest_PublishesMemberJoined(t *testing.T) {
	groupRepo := memory.NewGroupRepository()
	gameRepo := memory.NewGameRepository()
	groupRepo.LinkGames(gameRepo)
	authz := NewAuthorizer(groupRepo, gameRepo)

	events := &eventPublisherMock{}
	service := NewMembershipService(groupRepo, gameRepo, authz, events, &seqIDGenerator{prefix: "grp"})
	service.now = func() time.Time { return time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC) }

	g := mustCreateGroup(t, service, "user-a", "Friday Game")
	if _, err := service.RequestJoin(t.Context(), "user-b", g.Slug); err != nil {
		t.Fatalf("request join failed: %v", err)
	}
	requests, _ := groupRepo.ListJoinRequests(t.Context(), g.ID)

	events.On("MemberJoined", g.ID, "user-b").Once()

	if _, err := service.AcceptRequest(t.Context(), "user-a", g.Slug, requests[0].ID); err != nil {
		t.Fatalf("accept request failed: %v", err)
	}

	events.AssertExpectations(t)
}

func TestGameService_CreateGame_PublishesGamePosted(t *testing.T) {
	groupRepo := memory.NewGroupRepository()
	gameRepo := memory.NewGameRepository()
	groupRepo.LinkGames(gameRepo)
	authz := NewAuthorizer(groupRepo, gameRepo)

	membership := NewMembershipService(groupRepo, gameRepo, authz, nil, &seqIDGenerator{prefix: "grp"})
	membership.now = func() time.Time { return time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC) }

	events := &eventPublisherMock{}
	games := NewGameService(gameRepo, groupRepo, authz, events, &seqIDGenerator{prefix: "game"})
	games.now = membership.now

	first := mustCreateGroup(t, membership, "user-a", "Friday Game")
	second := mustCreateGroup(t, membership, "user-a", "High Rollers")

	events.On("GamePosted", "game-001", first.ID).Once()
	events.On("GamePosted", "game-001", second.ID).Once()

	if _, err := games.CreateGame(t.Context(), CreateGameInput{
		ActorID:    "user-a",
		Title:      "Announced game",
		Date:       gameDate(),
		BuyInCents: 10000,
		GroupIDs:   []string{first.ID, second.ID},
	}); err != nil {
		t.Fatalf("create game failed: %v", err)
	}

	events.AssertExpectations(t)
}
