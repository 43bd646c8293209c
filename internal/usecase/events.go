package usecase

import "context"

// EventPublisher emits outbound lifecycle notifications. Implementations own
// their delivery problems and must not fail the calling operation.
type EventPublisher interface {
	MemberJoined(ctx context.Context, groupID, userID string)
	GamePosted(ctx context.Context, gameID, groupID string)
}

// NopEventPublisher drops every event. Used when no webhook endpoint is
// configured.
type NopEventPublisher struct{}

func (NopEventPublisher) MemberJoined(context.Context, string, string) {}

func (NopEventPublisher) GamePosted(context.Context, string, string) {}
