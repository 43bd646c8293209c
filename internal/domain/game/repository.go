package game

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicate is returned by stores when an insert hits a uniqueness
// constraint, including the (game, player) participation guard.
var ErrDuplicate = errors.New("duplicate record")

type UpdateFields struct {
	Title      string
	Date       time.Time
	Location   string
	BuyInCents int64
}

type Repository interface {
	// CreateWithPosts persists the game and its initial postings atomically.
	// Duplicate postings within the batch are absorbed, not errors.
	CreateWithPosts(ctx context.Context, g Game, posts []Post) error
	GetByID(ctx context.Context, gameID string) (Game, bool, error)
	Update(ctx context.Context, gameID string, fields UpdateFields) error
	// Delete removes the game; posts and participations cascade with it.
	Delete(ctx context.Context, gameID string) (bool, error)

	ListPosts(ctx context.Context, gameID string) ([]Post, error)
	ListPostsByGroup(ctx context.Context, groupID string, limit int) ([]Post, error)
	PostedGroupIDs(ctx context.Context, gameID string) ([]string, error)
	// SyncPosts applies a posting diff in one transaction: inserts the given
	// posts (get-or-create) and removes postings to removeGroupIDs.
	SyncPosts(ctx context.Context, gameID string, add []Post, removeGroupIDs []string) error

	CreateParticipation(ctx context.Context, p Participation) error
	GetParticipation(ctx context.Context, participationID string) (Participation, bool, error)
	UpdateParticipation(ctx context.Context, participationID string, finalBalanceCents, rebuyCents int64) error
	DeleteParticipation(ctx context.Context, participationID string) (bool, error)
	ListParticipations(ctx context.Context, gameID string) ([]Participation, error)

	ListGamesByGroup(ctx context.Context, groupID string) ([]Game, error)
}
