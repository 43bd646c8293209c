package game

import "time"

// Game is a single poker session. Money fields are integer cents; the buy-in
// applies once per participant and rebuys add on top of it.
type Game struct {
	ID         string
	Title      string
	Date       time.Time
	Location   string
	BuyInCents int64
	CreatedBy  string
	CreatedAt  time.Time
}

// Post records that a game was shared into a group.
type Post struct {
	GameID   string
	GroupID  string
	PostedBy string
	PostedAt time.Time
}

// Participation is a player's recorded result in a game. FinalBalanceCents is
// the net result and may be negative; RebuyCents is non-negative.
type Participation struct {
	ID                string
	GameID            string
	PlayerID          string
	FinalBalanceCents int64
	RebuyCents        int64
	CreatedAt         time.Time
}

// TotalPotCents sums buy-in plus rebuy over every participation.
func TotalPotCents(g Game, participations []Participation) int64 {
	var total int64
	for _, p := range participations {
		total += g.BuyInCents + p.RebuyCents
	}
	return total
}
