package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
	"github.com/riskibarqy/pokerdex/internal/domain/group"
	idgen "github.com/riskibarqy/pokerdex/internal/platform/id"
)

type CreateGameInput struct {
	ActorID    string
	Title      string
	Date       time.Time
	Location   string
	BuyInCents int64
	GroupIDs   []string
}

type UpdateGameInput struct {
	ActorID    string
	GameID     string
	Title      string
	Date       time.Time
	Location   string
	BuyInCents int64
	GroupIDs   []string
}

type AddParticipationInput struct {
	ActorID           string
	GameID            string
	PlayerID          string
	FinalBalanceCents int64
	RebuyCents        int64
}

type UpdateParticipationInput struct {
	ActorID           string
	GameID            string
	ParticipationID   string
	FinalBalanceCents int64
	RebuyCents        int64
}

// GameDetail is the full game page payload: the game, where it is posted, who
// played, and the pot they built together.
type GameDetail struct {
	Game           game.Game
	Posts          []game.Post
	Participations []game.Participation
	TotalPotCents  int64
	CanManage      bool
}

type GameService struct {
	gameRepo  game.Repository
	groupRepo group.Repository
	authz     *Authorizer
	events    EventPublisher
	idGen     idgen.Generator
	now       func() time.Time
}

func NewGameService(
	gameRepo game.Repository,
	groupRepo group.Repository,
	authz *Authorizer,
	events EventPublisher,
	idGen idgen.Generator,
) *GameService {
	if events == nil {
		events = NopEventPublisher{}
	}
	return &GameService{
		gameRepo:  gameRepo,
		groupRepo: groupRepo,
		authz:     authz,
		events:    events,
		idGen:     idGen,
		now:       time.Now,
	}
}

// CreateGame creates the game and posts it to the requested groups in one
// transaction. Only groups the actor belongs to are honored; ids outside that
// set are dropped without complaint, matching the pre-filtered candidate list
// the caller was shown.
func (s *GameService) CreateGame(ctx context.Context, input CreateGameInput) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.CreateGame")
	defer span.End()

	input.ActorID = strings.TrimSpace(input.ActorID)
	input.Title = strings.TrimSpace(input.Title)
	input.Location = strings.TrimSpace(input.Location)
	if input.ActorID == "" {
		return game.Game{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if input.Title == "" {
		return game.Game{}, fmt.Errorf("%w: game title is required", ErrInvalidInput)
	}
	if input.Date.IsZero() {
		return game.Game{}, fmt.Errorf("%w: game date is required", ErrInvalidInput)
	}
	if input.BuyInCents < 0 {
		return game.Game{}, fmt.Errorf("%w: buy-in cannot be negative", ErrInvalidInput)
	}

	groupIDs, err := s.filterToActorGroups(ctx, input.ActorID, input.GroupIDs)
	if err != nil {
		return game.Game{}, err
	}
	if len(groupIDs) == 0 {
		return game.Game{}, fmt.Errorf("%w: at least one of your groups is required", ErrInvalidInput)
	}

	gameID, err := s.idGen.NewID()
	if err != nil {
		return game.Game{}, fmt.Errorf("generate game id: %w", err)
	}

	now := s.now().UTC()
	g := game.Game{
		ID:         gameID,
		Title:      input.Title,
		Date:       input.Date,
		Location:   input.Location,
		BuyInCents: input.BuyInCents,
		CreatedBy:  input.ActorID,
		CreatedAt:  now,
	}
	posts := make([]game.Post, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		posts = append(posts, game.Post{
			GameID:   gameID,
			GroupID:  groupID,
			PostedBy: input.ActorID,
			PostedAt: now,
		})
	}

	if err := s.gameRepo.CreateWithPosts(ctx, g, posts); err != nil {
		return game.Game{}, fmt.Errorf("create game with posts: %w", err)
	}

	for _, post := range posts {
		s.events.GamePosted(ctx, gameID, post.GroupID)
	}
	return g, nil
}

func (s *GameService) GetGame(ctx context.Context, actorID, gameID string) (GameDetail, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.GetGame")
	defer span.End()

	actorID = strings.TrimSpace(actorID)
	gameID = strings.TrimSpace(gameID)
	if actorID == "" {
		return GameDetail{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if gameID == "" {
		return GameDetail{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	g, exists, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return GameDetail{}, fmt.Errorf("get game by id: %w", err)
	}
	if !exists {
		return GameDetail{}, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}

	posts, err := s.gameRepo.ListPosts(ctx, gameID)
	if err != nil {
		return GameDetail{}, fmt.Errorf("list game posts: %w", err)
	}
	participations, err := s.gameRepo.ListParticipations(ctx, gameID)
	if err != nil {
		return GameDetail{}, fmt.Errorf("list game participations: %w", err)
	}
	canManage, err := s.authz.CanManageGame(ctx, g, actorID)
	if err != nil {
		return GameDetail{}, err
	}

	return GameDetail{
		Game:           g,
		Posts:          posts,
		Participations: participations,
		TotalPotCents:  game.TotalPotCents(g, participations),
		CanManage:      canManage,
	}, nil
}

// UpdateGame rewrites the game fields and synchronizes its postings as a diff
// against the current set. Ownership never moves on edit.
func (s *GameService) UpdateGame(ctx context.Context, input UpdateGameInput) (game.Game, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.UpdateGame")
	defer span.End()

	input.ActorID = strings.TrimSpace(input.ActorID)
	input.GameID = strings.TrimSpace(input.GameID)
	input.Title = strings.TrimSpace(input.Title)
	input.Location = strings.TrimSpace(input.Location)
	if input.ActorID == "" {
		return game.Game{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if input.GameID == "" {
		return game.Game{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if input.Title == "" {
		return game.Game{}, fmt.Errorf("%w: game title is required", ErrInvalidInput)
	}
	if input.Date.IsZero() {
		return game.Game{}, fmt.Errorf("%w: game date is required", ErrInvalidInput)
	}
	if input.BuyInCents < 0 {
		return game.Game{}, fmt.Errorf("%w: buy-in cannot be negative", ErrInvalidInput)
	}

	g, err := s.requireManagedGame(ctx, input.ActorID, input.GameID)
	if err != nil {
		return game.Game{}, err
	}

	desired, err := s.filterToActorGroups(ctx, input.ActorID, input.GroupIDs)
	if err != nil {
		return game.Game{}, err
	}
	if len(desired) == 0 {
		return game.Game{}, fmt.Errorf("%w: at least one of your groups is required", ErrInvalidInput)
	}

	current, err := s.gameRepo.PostedGroupIDs(ctx, g.ID)
	if err != nil {
		return game.Game{}, fmt.Errorf("list posted groups: %w", err)
	}
	currentSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
	}

	now := s.now().UTC()
	var add []game.Post
	for _, id := range desired {
		if _, posted := currentSet[id]; !posted {
			add = append(add, game.Post{
				GameID:   g.ID,
				GroupID:  id,
				PostedBy: input.ActorID,
				PostedAt: now,
			})
		}
	}
	var remove []string
	for _, id := range current {
		if _, kept := desiredSet[id]; !kept {
			remove = append(remove, id)
		}
	}

	fields := game.UpdateFields{
		Title:      input.Title,
		Date:       input.Date,
		Location:   input.Location,
		BuyInCents: input.BuyInCents,
	}
	if err := s.gameRepo.Update(ctx, g.ID, fields); err != nil {
		return game.Game{}, fmt.Errorf("update game: %w", err)
	}
	if len(add) > 0 || len(remove) > 0 {
		if err := s.gameRepo.SyncPosts(ctx, g.ID, add, remove); err != nil {
			return game.Game{}, fmt.Errorf("synchronize game posts: %w", err)
		}
	}

	for _, post := range add {
		s.events.GamePosted(ctx, g.ID, post.GroupID)
	}

	g.Title = fields.Title
	g.Date = fields.Date
	g.Location = fields.Location
	g.BuyInCents = fields.BuyInCents
	return g, nil
}

func (s *GameService) DeleteGame(ctx context.Context, actorID, gameID string) error {
	actorID = strings.TrimSpace(actorID)
	gameID = strings.TrimSpace(gameID)
	if actorID == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if gameID == "" {
		return fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}

	g, err := s.requireManagedGame(ctx, actorID, gameID)
	if err != nil {
		return err
	}

	deleted, err := s.gameRepo.Delete(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}
	return nil
}

// AddParticipation records a player's result. The player must belong to every
// group the game is posted to; a game posted nowhere accepts nobody.
func (s *GameService) AddParticipation(ctx context.Context, input AddParticipationInput) (game.Participation, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameService.AddParticipation")
	defer span.End()

	input.ActorID = strings.TrimSpace(input.ActorID)
	input.GameID = strings.TrimSpace(input.GameID)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if input.ActorID == "" {
		return game.Participation{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if input.GameID == "" {
		return game.Participation{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if input.PlayerID == "" {
		return game.Participation{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	if input.RebuyCents < 0 {
		return game.Participation{}, fmt.Errorf("%w: rebuy cannot be negative", ErrInvalidInput)
	}

	g, exists, err := s.gameRepo.GetByID(ctx, input.GameID)
	if err != nil {
		return game.Participation{}, fmt.Errorf("get game by id: %w", err)
	}
	if !exists {
		return game.Participation{}, fmt.Errorf("%w: game %s", ErrNotFound, input.GameID)
	}

	if err := s.checkEligibility(ctx, g.ID, input.PlayerID); err != nil {
		return game.Participation{}, err
	}

	participations, err := s.gameRepo.ListParticipations(ctx, g.ID)
	if err != nil {
		return game.Participation{}, fmt.Errorf("list participations for duplicate check: %w", err)
	}
	for _, p := range participations {
		if p.PlayerID == input.PlayerID {
			return game.Participation{}, fmt.Errorf("%w: player %s", ErrDuplicateParticipation, input.PlayerID)
		}
	}

	participationID, err := s.idGen.NewID()
	if err != nil {
		return game.Participation{}, fmt.Errorf("generate participation id: %w", err)
	}
	participation := game.Participation{
		ID:                participationID,
		GameID:            g.ID,
		PlayerID:          input.PlayerID,
		FinalBalanceCents: input.FinalBalanceCents,
		RebuyCents:        input.RebuyCents,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.gameRepo.CreateParticipation(ctx, participation); err != nil {
		if errors.Is(err, game.ErrDuplicate) {
			// raced with a concurrent insert for the same player
			return game.Participation{}, fmt.Errorf("%w: player %s", ErrDuplicateParticipation, input.PlayerID)
		}
		return game.Participation{}, fmt.Errorf("create participation: %w", err)
	}

	return participation, nil
}

// UpdateParticipation is open to the game owner, the player themself, or the
// creator of any posted group.
func (s *GameService) UpdateParticipation(ctx context.Context, input UpdateParticipationInput) (game.Participation, error) {
	input.ActorID = strings.TrimSpace(input.ActorID)
	input.GameID = strings.TrimSpace(input.GameID)
	input.ParticipationID = strings.TrimSpace(input.ParticipationID)
	if input.RebuyCents < 0 {
		return game.Participation{}, fmt.Errorf("%w: rebuy cannot be negative", ErrInvalidInput)
	}

	g, participation, err := s.resolveParticipation(ctx, input.ActorID, input.GameID, input.ParticipationID)
	if err != nil {
		return game.Participation{}, err
	}

	allowed := s.authz.IsGameOwner(g, input.ActorID) || participation.PlayerID == input.ActorID
	if !allowed {
		allowed, err = s.authz.IsGroupCreatorOfAnyPostedGroup(ctx, g.ID, input.ActorID)
		if err != nil {
			return game.Participation{}, err
		}
	}
	if !allowed {
		return game.Participation{}, fmt.Errorf("%w: cannot edit this participation", ErrForbidden)
	}

	if err := s.gameRepo.UpdateParticipation(ctx, participation.ID, input.FinalBalanceCents, input.RebuyCents); err != nil {
		return game.Participation{}, fmt.Errorf("update participation: %w", err)
	}

	participation.FinalBalanceCents = input.FinalBalanceCents
	participation.RebuyCents = input.RebuyCents
	return participation, nil
}

// DeleteParticipation is stricter than edit: only the game owner or the
// player themself, group creators deliberately excluded.
func (s *GameService) DeleteParticipation(ctx context.Context, actorID, gameID, participationID string) error {
	actorID = strings.TrimSpace(actorID)

	g, participation, err := s.resolveParticipation(ctx, actorID, strings.TrimSpace(gameID), strings.TrimSpace(participationID))
	if err != nil {
		return err
	}

	if !s.authz.IsGameOwner(g, actorID) && participation.PlayerID != actorID {
		return fmt.Errorf("%w: cannot delete this participation", ErrForbidden)
	}

	deleted, err := s.gameRepo.DeleteParticipation(ctx, participation.ID)
	if err != nil {
		return fmt.Errorf("delete participation: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: participation %s", ErrNotFound, participation.ID)
	}
	return nil
}

// checkEligibility verifies the player belongs to every posted group using a
// distinct-group membership count against the posted set.
func (s *GameService) checkEligibility(ctx context.Context, gameID, playerID string) error {
	posted, err := s.gameRepo.PostedGroupIDs(ctx, gameID)
	if err != nil {
		return fmt.Errorf("list posted groups for eligibility: %w", err)
	}
	if len(posted) == 0 {
		return fmt.Errorf("%w: game is not posted to any group", ErrIneligiblePlayer)
	}

	count, err := s.groupRepo.CountDistinctMemberships(ctx, playerID, posted)
	if err != nil {
		return fmt.Errorf("count memberships for eligibility: %w", err)
	}
	if count != len(posted) {
		return fmt.Errorf("%w: player must belong to every group this game is posted to", ErrIneligiblePlayer)
	}
	return nil
}

func (s *GameService) filterToActorGroups(ctx context.Context, actorID string, groupIDs []string) ([]string, error) {
	memberOf, err := s.groupRepo.ListGroupIDsByUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list actor group ids: %w", err)
	}
	allowed := make(map[string]struct{}, len(memberOf))
	for _, id := range memberOf {
		allowed[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(groupIDs))
	filtered := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := allowed[id]; ok {
			filtered = append(filtered, id)
		}
	}
	return filtered, nil
}

func (s *GameService) requireManagedGame(ctx context.Context, actorID, gameID string) (game.Game, error) {
	g, exists, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, fmt.Errorf("get game by id: %w", err)
	}
	if !exists {
		return game.Game{}, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}

	allowed, err := s.authz.CanManageGame(ctx, g, actorID)
	if err != nil {
		return game.Game{}, err
	}
	if !allowed {
		return game.Game{}, fmt.Errorf("%w: game owner or group creator required", ErrForbidden)
	}
	return g, nil
}

func (s *GameService) resolveParticipation(ctx context.Context, actorID, gameID, participationID string) (game.Game, game.Participation, error) {
	if actorID == "" {
		return game.Game{}, game.Participation{}, fmt.Errorf("%w: actor id is required", ErrInvalidInput)
	}
	if gameID == "" {
		return game.Game{}, game.Participation{}, fmt.Errorf("%w: game id is required", ErrInvalidInput)
	}
	if participationID == "" {
		return game.Game{}, game.Participation{}, fmt.Errorf("%w: participation id is required", ErrInvalidInput)
	}

	g, exists, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return game.Game{}, game.Participation{}, fmt.Errorf("get game by id: %w", err)
	}
	if !exists {
		return game.Game{}, game.Participation{}, fmt.Errorf("%w: game %s", ErrNotFound, gameID)
	}

	participation, exists, err := s.gameRepo.GetParticipation(ctx, participationID)
	if err != nil {
		return game.Game{}, game.Participation{}, fmt.Errorf("get participation: %w", err)
	}
	if !exists || participation.GameID != g.ID {
		return game.Game{}, game.Participation{}, fmt.Errorf("%w: participation %s", ErrNotFound, participationID)
	}
	return g, participation, nil
}
