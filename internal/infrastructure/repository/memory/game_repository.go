package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
)

type GameRepository struct {
	mu                 sync.RWMutex
	games              map[string]game.Game
	gameOrder          []string
	posts              []game.Post
	participations     map[string]game.Participation
	participationOrder []string
}

func NewGameRepository() *GameRepository {
	return &GameRepository{
		games:          make(map[string]game.Game),
		participations: make(map[string]game.Participation),
	}
}

func (r *GameRepository) CreateWithPosts(_ context.Context, g game.Game, posts []game.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[g.ID]; ok {
		return game.ErrDuplicate
	}
	r.games[g.ID] = g
	r.gameOrder = append(r.gameOrder, g.ID)
	for _, post := range posts {
		r.addPostLocked(post)
	}
	return nil
}

func (r *GameRepository) GetByID(_ context.Context, gameID string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[gameID]
	return g, ok, nil
}

func (r *GameRepository) Update(_ context.Context, gameID string, fields game.UpdateFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[gameID]
	if !ok {
		return nil
	}
	g.Title = fields.Title
	g.Date = fields.Date
	g.Location = fields.Location
	g.BuyInCents = fields.BuyInCents
	r.games[gameID] = g
	return nil
}

func (r *GameRepository) Delete(_ context.Context, gameID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[gameID]; !ok {
		return false, nil
	}
	delete(r.games, gameID)
	for i, id := range r.gameOrder {
		if id == gameID {
			r.gameOrder = append(r.gameOrder[:i], r.gameOrder[i+1:]...)
			break
		}
	}

	kept := r.posts[:0]
	for _, post := range r.posts {
		if post.GameID != gameID {
			kept = append(kept, post)
		}
	}
	r.posts = kept

	for id, p := range r.participations {
		if p.GameID == gameID {
			delete(r.participations, id)
			r.participationOrder = removeID(r.participationOrder, id)
		}
	}
	return true, nil
}

func (r *GameRepository) ListPosts(_ context.Context, gameID string) ([]game.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Post, 0)
	for _, post := range r.posts {
		if post.GameID == gameID {
			out = append(out, post)
		}
	}
	return out, nil
}

func (r *GameRepository) ListPostsByGroup(_ context.Context, groupID string, limit int) ([]game.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Post, 0)
	for _, post := range r.posts {
		if post.GroupID == groupID {
			out = append(out, post)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PostedAt.After(out[j].PostedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *GameRepository) PostedGroupIDs(_ context.Context, gameID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0)
	for _, post := range r.posts {
		if post.GameID == gameID {
			out = append(out, post.GroupID)
		}
	}
	return out, nil
}

func (r *GameRepository) SyncPosts(_ context.Context, gameID string, add []game.Post, removeGroupIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, post := range add {
		r.addPostLocked(post)
	}

	drop := make(map[string]struct{}, len(removeGroupIDs))
	for _, id := range removeGroupIDs {
		drop[id] = struct{}{}
	}
	kept := r.posts[:0]
	for _, post := range r.posts {
		if post.GameID == gameID {
			if _, gone := drop[post.GroupID]; gone {
				continue
			}
		}
		kept = append(kept, post)
	}
	r.posts = kept
	return nil
}

func (r *GameRepository) CreateParticipation(_ context.Context, p game.Participation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.participations {
		if existing.GameID == p.GameID && existing.PlayerID == p.PlayerID {
			return game.ErrDuplicate
		}
	}
	r.participations[p.ID] = p
	r.participationOrder = append(r.participationOrder, p.ID)
	return nil
}

func (r *GameRepository) GetParticipation(_ context.Context, participationID string) (game.Participation, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.participations[participationID]
	return p, ok, nil
}

func (r *GameRepository) UpdateParticipation(_ context.Context, participationID string, finalBalanceCents, rebuyCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participations[participationID]
	if !ok {
		return nil
	}
	p.FinalBalanceCents = finalBalanceCents
	p.RebuyCents = rebuyCents
	r.participations[participationID] = p
	return nil
}

func (r *GameRepository) DeleteParticipation(_ context.Context, participationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participations[participationID]; !ok {
		return false, nil
	}
	delete(r.participations, participationID)
	r.participationOrder = removeID(r.participationOrder, participationID)
	return true, nil
}

func (r *GameRepository) ListParticipations(_ context.Context, gameID string) ([]game.Participation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]game.Participation, 0)
	for _, id := range r.participationOrder {
		if p := r.participations[id]; p.GameID == gameID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *GameRepository) ListGamesByGroup(_ context.Context, groupID string) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]game.Game, 0)
	for _, post := range r.posts {
		if post.GroupID != groupID {
			continue
		}
		if _, dup := seen[post.GameID]; dup {
			continue
		}
		seen[post.GameID] = struct{}{}
		if g, ok := r.games[post.GameID]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *GameRepository) addPostLocked(post game.Post) {
	for _, existing := range r.posts {
		if existing.GameID == post.GameID && existing.GroupID == post.GroupID {
			return
		}
	}
	r.posts = append(r.posts, post)
}

// postStats feeds the group list aggregates.
func (r *GameRepository) postStats(groupID string) (int, *time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	var last *time.Time
	for _, post := range r.posts {
		if post.GroupID != groupID {
			continue
		}
		count++
		if last == nil || post.PostedAt.After(*last) {
			postedAt := post.PostedAt
			last = &postedAt
		}
	}
	return count, last
}

// removePostsByGroup mirrors the FK cascade from groups onto game posts.
func (r *GameRepository) removePostsByGroup(groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.posts[:0]
	for _, post := range r.posts {
		if post.GroupID != groupID {
			kept = append(kept, post)
		}
	}
	r.posts = kept
}

var _ game.Repository = (*GameRepository)(nil)
