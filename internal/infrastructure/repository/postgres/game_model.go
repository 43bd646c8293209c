package postgres

import (
	"time"

	"github.com/riskibarqy/pokerdex/internal/domain/game"
)

type gameTableModel struct {
	ID         int64     `db:"id"`
	PublicID   string    `db:"public_id"`
	Title      string    `db:"title"`
	Date       time.Time `db:"date"`
	Location   string    `db:"location"`
	BuyInCents int64     `db:"buy_in_cents"`
	CreatedBy  string    `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
}

type gameInsertModel struct {
	PublicID   string    `db:"public_id"`
	Title      string    `db:"title"`
	Date       time.Time `db:"date"`
	Location   string    `db:"location"`
	BuyInCents int64     `db:"buy_in_cents"`
	CreatedBy  string    `db:"created_by"`
	CreatedAt  time.Time `db:"created_at"`
}

type gamePostTableModel struct {
	ID       int64     `db:"id"`
	GameID   string    `db:"game_public_id"`
	GroupID  string    `db:"group_public_id"`
	PostedBy string    `db:"posted_by"`
	PostedAt time.Time `db:"posted_at"`
}

type gamePostInsertModel struct {
	GameID   string    `db:"game_public_id"`
	GroupID  string    `db:"group_public_id"`
	PostedBy string    `db:"posted_by"`
	PostedAt time.Time `db:"posted_at"`
}

type participationTableModel struct {
	ID                int64     `db:"id"`
	PublicID          string    `db:"public_id"`
	GameID            string    `db:"game_public_id"`
	PlayerID          string    `db:"player_id"`
	FinalBalanceCents int64     `db:"final_balance_cents"`
	RebuyCents        int64     `db:"rebuy_cents"`
	CreatedAt         time.Time `db:"created_at"`
}

type participationInsertModel struct {
	PublicID          string    `db:"public_id"`
	GameID            string    `db:"game_public_id"`
	PlayerID          string    `db:"player_id"`
	FinalBalanceCents int64     `db:"final_balance_cents"`
	RebuyCents        int64     `db:"rebuy_cents"`
	CreatedAt         time.Time `db:"created_at"`
}

func gameFromRow(row gameTableModel) game.Game {
	return game.Game{
		ID:         row.PublicID,
		Title:      row.Title,
		Date:       row.Date,
		Location:   row.Location,
		BuyInCents: row.BuyInCents,
		CreatedBy:  row.CreatedBy,
		CreatedAt:  row.CreatedAt,
	}
}

func gamePostFromRow(row gamePostTableModel) game.Post {
	return game.Post{
		GameID:   row.GameID,
		GroupID:  row.GroupID,
		PostedBy: row.PostedBy,
		PostedAt: row.PostedAt,
	}
}

func participationFromRow(row participationTableModel) game.Participation {
	return game.Participation{
		ID:                row.PublicID,
		GameID:            row.GameID,
		PlayerID:          row.PlayerID,
		FinalBalanceCents: row.FinalBalanceCents,
		RebuyCents:        row.RebuyCents,
		CreatedAt:         row.CreatedAt,
	}
}
