package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
	qb "github.com/riskibarqy/pokerdex/internal/platform/querybuilder"
)

const gamePostConflictClause = "ON CONFLICT (game_public_id, group_public_id) DO NOTHING"

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) CreateWithPosts(ctx context.Context, g game.Game, posts []game.Post) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx create game: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	gameQuery, gameArgs, err := qb.InsertModel("games", gameInsertModel{
		PublicID:   g.ID,
		Title:      g.Title,
		Date:       g.Date,
		Location:   g.Location,
		BuyInCents: g.BuyInCents,
		CreatedBy:  g.CreatedBy,
		CreatedAt:  g.CreatedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build create game query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, gameQuery, gameArgs...); err != nil {
		if isUniqueViolation(err) {
			return game.ErrDuplicate
		}
		return fmt.Errorf("create game: %w", err)
	}

	for _, post := range posts {
		if err := insertPost(ctx, tx, post); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create game tx: %w", err)
	}
	return nil
}

func insertPost(ctx context.Context, tx *sqlx.Tx, post game.Post) error {
	query, args, err := qb.InsertModel("game_posts", gamePostInsertModel{
		GameID:   post.GameID,
		GroupID:  post.GroupID,
		PostedBy: post.PostedBy,
		PostedAt: post.PostedAt,
	}, gamePostConflictClause)
	if err != nil {
		return fmt.Errorf("build create game post query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create game post: %w", err)
	}
	return nil
}

func (r *GameRepository) GetByID(ctx context.Context, gameID string) (game.Game, bool, error) {
	query, args, err := qb.Select("*").From("games").Where(qb.Eq("public_id", gameID)).ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build get game query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("get game: %w", err)
	}
	return gameFromRow(row), true, nil
}

func (r *GameRepository) Update(ctx context.Context, gameID string, fields game.UpdateFields) error {
	query, args, err := qb.Update("games").
		Set("title", fields.Title).
		Set("date", fields.Date).
		Set("location", fields.Location).
		Set("buy_in_cents", fields.BuyInCents).
		Where(qb.Eq("public_id", gameID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update game query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	return nil
}

func (r *GameRepository) Delete(ctx context.Context, gameID string) (bool, error) {
	query, args, err := qb.Delete("games").Where(qb.Eq("public_id", gameID)).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete game query: %w", err)
	}

	// posts and participations go with it via FK cascade
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete game: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected delete game: %w", err)
	}
	return affected > 0, nil
}

func (r *GameRepository) ListPosts(ctx context.Context, gameID string) ([]game.Post, error) {
	query, args, err := qb.Select("*").
		From("game_posts").
		Where(qb.Eq("game_public_id", gameID)).
		OrderBy("posted_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list game posts query: %w", err)
	}
	return r.selectPosts(ctx, query, args)
}

func (r *GameRepository) ListPostsByGroup(ctx context.Context, groupID string, limit int) ([]game.Post, error) {
	query, args, err := qb.Select("*").
		From("game_posts").
		Where(qb.Eq("group_public_id", groupID)).
		OrderBy("posted_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list posts by group query: %w", err)
	}
	return r.selectPosts(ctx, query, args)
}

func (r *GameRepository) selectPosts(ctx context.Context, query string, args []any) ([]game.Post, error) {
	var rows []gamePostTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list game posts: %w", err)
	}

	out := make([]game.Post, 0, len(rows))
	for _, row := range rows {
		out = append(out, gamePostFromRow(row))
	}
	return out, nil
}

func (r *GameRepository) PostedGroupIDs(ctx context.Context, gameID string) ([]string, error) {
	query, args, err := qb.Select("group_public_id").
		From("game_posts").
		Where(qb.Eq("game_public_id", gameID)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build posted group ids query: %w", err)
	}

	var out []string
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list posted group ids: %w", err)
	}
	return out, nil
}

func (r *GameRepository) SyncPosts(ctx context.Context, gameID string, add []game.Post, removeGroupIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx sync game posts: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, post := range add {
		if err := insertPost(ctx, tx, post); err != nil {
			return err
		}
	}

	if len(removeGroupIDs) > 0 {
		values := make([]any, 0, len(removeGroupIDs))
		for _, id := range removeGroupIDs {
			values = append(values, id)
		}
		query, args, err := qb.Delete("game_posts").
			Where(
				qb.Eq("game_public_id", gameID),
				qb.In("group_public_id", values),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build remove game posts query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("remove game posts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync game posts tx: %w", err)
	}
	return nil
}

func (r *GameRepository) CreateParticipation(ctx context.Context, p game.Participation) error {
	query, args, err := qb.InsertModel("game_participations", participationInsertModel{
		PublicID:          p.ID,
		GameID:            p.GameID,
		PlayerID:          p.PlayerID,
		FinalBalanceCents: p.FinalBalanceCents,
		RebuyCents:        p.RebuyCents,
		CreatedAt:         p.CreatedAt,
	}, "")
	if err != nil {
		return fmt.Errorf("build create participation query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return game.ErrDuplicate
		}
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

func (r *GameRepository) GetParticipation(ctx context.Context, participationID string) (game.Participation, bool, error) {
	query, args, err := qb.Select("*").
		From("game_participations").
		Where(qb.Eq("public_id", participationID)).
		ToSQL()
	if err != nil {
		return game.Participation{}, false, fmt.Errorf("build get participation query: %w", err)
	}

	var row participationTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Participation{}, false, nil
		}
		return game.Participation{}, false, fmt.Errorf("get participation: %w", err)
	}
	return participationFromRow(row), true, nil
}

func (r *GameRepository) UpdateParticipation(ctx context.Context, participationID string, finalBalanceCents, rebuyCents int64) error {
	query, args, err := qb.Update("game_participations").
		Set("final_balance_cents", finalBalanceCents).
		Set("rebuy_cents", rebuyCents).
		Where(qb.Eq("public_id", participationID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update participation query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update participation: %w", err)
	}
	return nil
}

func (r *GameRepository) DeleteParticipation(ctx context.Context, participationID string) (bool, error) {
	query, args, err := qb.Delete("game_participations").
		Where(qb.Eq("public_id", participationID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete participation query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete participation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected delete participation: %w", err)
	}
	return affected > 0, nil
}

func (r *GameRepository) ListParticipations(ctx context.Context, gameID string) ([]game.Participation, error) {
	query, args, err := qb.Select("*").
		From("game_participations").
		Where(qb.Eq("game_public_id", gameID)).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list participations query: %w", err)
	}

	var rows []participationTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}

	out := make([]game.Participation, 0, len(rows))
	for _, row := range rows {
		out = append(out, participationFromRow(row))
	}
	return out, nil
}

func (r *GameRepository) ListGamesByGroup(ctx context.Context, groupID string) ([]game.Game, error) {
	query, args, err := qb.Select("ga.*").
		From("games ga JOIN game_posts gp ON gp.game_public_id = ga.public_id").
		Where(qb.Eq("gp.group_public_id", groupID)).
		OrderBy("ga.date DESC", "ga.id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list games by group query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list games by group: %w", err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, gameFromRow(row))
	}
	return out, nil
}

var _ game.Repository = (*GameRepository)(nil)
