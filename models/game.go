package models

import "time"

// GameType identifies one of the built-in gambling games
type GameType string

const (
	GameTypeSlots    GameType = "slots"
	GameTypeCoinflip GameType = "coinflip"
	GameTypeDice     GameType = "dice"
)

// Valid reports whether t is a known game type
func (t GameType) Valid() bool {
	switch t {
	case GameTypeSlots, GameTypeCoinflip, GameTypeDice:
		return true
	}
	return false
}

// GameOutcome is the result of resolving a game: a human-readable outcome
// description and the non-negative winnings (gross payout, not net of the
// bet).
type GameOutcome struct {
	Description string
	Winnings    int64
}

// GameResult is returned to the caller after a game has been played and its
// net delta applied to the ledger
type GameResult struct {
	GameType   GameType
	Outcome    string
	Bet        int64
	Winnings   int64
	NewBalance int64
}

// GameRecord is the persisted record of one played game
type GameRecord struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	ServerID  string    `db:"server_id"`
	GameType  GameType  `db:"game_type"`
	Bet       int64     `db:"bet"`
	Winnings  int64     `db:"winnings"`
	Outcome   string    `db:"outcome"`
	CreatedAt time.Time `db:"created_at"`
}
