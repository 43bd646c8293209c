package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
	"github.com/riskibarqy/pokerdex/internal/domain/group"
)

const maxStatsWorkers = 4

// PlayerLedger is one player's line in the group ledger: what they paid in
// across all games and where they ended up.
type PlayerLedger struct {
	PlayerID        string
	GamesPlayed     int
	TotalBuyInCents int64
	TotalRebuyCents int64
	NetBalanceCents int64
}

type GroupStats struct {
	Group         group.Group
	GameCount     int
	TotalPotCents int64
	Players       []PlayerLedger
}

type StatsService struct {
	groupRepo group.Repository
	gameRepo  game.Repository
}

func NewStatsService(groupRepo group.Repository, gameRepo game.Repository) *StatsService {
	return &StatsService{
		groupRepo: groupRepo,
		gameRepo:  gameRepo,
	}
}

// GroupStats builds the per-player ledger across every game posted to the
// group. Games are aggregated concurrently through a small worker pool.
func (s *StatsService) GroupStats(ctx context.Context, actorID, groupSlug string) (GroupStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.GroupStats")
	defer span.End()

	actorID = strings.TrimSpace(actorID)
	groupSlug = strings.TrimSpace(groupSlug)
	if actorID == "" {
		return GroupStats{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if groupSlug == "" {
		return GroupStats{}, fmt.Errorf("%w: group slug is required", ErrInvalidInput)
	}

	g, exists, err := s.groupRepo.GetBySlug(ctx, groupSlug)
	if err != nil {
		return GroupStats{}, fmt.Errorf("get group by slug: %w", err)
	}
	if !exists {
		return GroupStats{}, fmt.Errorf("%w: group %s", ErrNotFound, groupSlug)
	}

	_, isMember, err := s.groupRepo.GetMembership(ctx, g.ID, actorID)
	if err != nil {
		return GroupStats{}, fmt.Errorf("check membership for stats: %w", err)
	}
	if !isMember && g.CreatedBy != actorID {
		return GroupStats{}, fmt.Errorf("%w: group members only", ErrForbidden)
	}

	games, err := s.gameRepo.ListGamesByGroup(ctx, g.ID)
	if err != nil {
		return GroupStats{}, fmt.Errorf("list games by group: %w", err)
	}

	stats := GroupStats{Group: g, GameCount: len(games)}
	if len(games) == 0 {
		return stats, nil
	}

	type gameLedger struct {
		game           game.Game
		participations []game.Participation
		err            error
	}

	workerCount := len(games)
	if workerCount > maxStatsWorkers {
		workerCount = maxStatsWorkers
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return GroupStats{}, fmt.Errorf("create stats worker pool: %w", err)
	}
	defer pool.Release()

	results := make(chan gameLedger, len(games))
	var workers sync.WaitGroup
	for _, gm := range games {
		gm := gm
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			participations, err := s.gameRepo.ListParticipations(ctx, gm.ID)
			results <- gameLedger{game: gm, participations: participations, err: err}
		}); err != nil {
			workers.Done()
			return GroupStats{}, fmt.Errorf("submit stats task: %w", err)
		}
	}
	workers.Wait()
	close(results)

	ledgers := make(map[string]*PlayerLedger)
	for row := range results {
		if row.err != nil {
			return GroupStats{}, fmt.Errorf("list participations for game=%s: %w", row.game.ID, row.err)
		}
		for _, p := range row.participations {
			ledger, ok := ledgers[p.PlayerID]
			if !ok {
				ledger = &PlayerLedger{PlayerID: p.PlayerID}
				ledgers[p.PlayerID] = ledger
			}
			ledger.GamesPlayed++
			ledger.TotalBuyInCents += row.game.BuyInCents
			ledger.TotalRebuyCents += p.RebuyCents
			ledger.NetBalanceCents += p.FinalBalanceCents
			stats.TotalPotCents += row.game.BuyInCents + p.RebuyCents
		}
	}

	stats.Players = make([]PlayerLedger, 0, len(ledgers))
	for _, ledger := range ledgers {
		stats.Players = append(stats.Players, *ledger)
	}
	sort.Slice(stats.Players, func(i, j int) bool {
		if stats.Players[i].NetBalanceCents != stats.Players[j].NetBalanceCents {
			return stats.Players[i].NetBalanceCents > stats.Players[j].NetBalanceCents
		}
		return stats.Players[i].PlayerID < stats.Players[j].PlayerID
	})

	return stats, nil
}
