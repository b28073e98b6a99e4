package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"coffers/models"
)

// Rand is the source of uniformly random outcomes consumed by the game
// resolvers. Production code uses the crypto/rand-backed implementation;
// tests inject fixed sequences.
type Rand interface {
	// Intn returns a uniform value in [0, n)
	Intn(n int) int
}

type cryptoSource struct{}

func (cryptoSource) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(fmt.Sprintf("crypto rand failed: %v", err))
	}
	return int(v.Int64())
}

// NewCryptoRand returns a Rand backed by crypto/rand
func NewCryptoRand() Rand {
	return cryptoSource{}
}

// Coinflip faces. Prediction values for PlayGame.
const (
	CoinHeads = 0
	CoinTails = 1
)

// Dice pays this multiple of the bet on an exact match
const DiceMultiplier = 5

// slotSymbol is one reel symbol and its three-of-a-kind payout multiplier
type slotSymbol struct {
	name       string
	multiplier int64
}

// The reel, lowest to highest value. Three-of-a-kind pays the symbol's
// multiplier; any pair pays a flat 3/2; a miss pays 0. Every three-of-a-kind
// multiplier exceeds the pair payout, which exceeds a miss.
var slotReel = []slotSymbol{
	{"cherry", 2},
	{"lemon", 3},
	{"seven", 10},
	{"diamond", 25},
}

// ResolveSlots draws three symbols independently and pays by match pattern
func ResolveSlots(bet int64, rng Rand) (models.GameOutcome, error) {
	if bet <= 0 {
		return models.GameOutcome{}, fmt.Errorf("bet must be positive: %w", models.ErrInvalidArgument)
	}

	draws := [3]slotSymbol{
		slotReel[rng.Intn(len(slotReel))],
		slotReel[rng.Intn(len(slotReel))],
		slotReel[rng.Intn(len(slotReel))],
	}
	desc := strings.Join([]string{draws[0].name, draws[1].name, draws[2].name}, "|")

	var winnings int64
	switch {
	case draws[0].name == draws[1].name && draws[1].name == draws[2].name:
		winnings = bet * draws[0].multiplier
	case draws[0].name == draws[1].name || draws[1].name == draws[2].name || draws[0].name == draws[2].name:
		winnings = bet * 3 / 2
	}

	return models.GameOutcome{Description: desc, Winnings: winnings}, nil
}

// ResolveCoinflip compares the predicted face to the drawn face; a win pays
// twice the bet (bet profit), a loss pays 0
func ResolveCoinflip(bet int64, prediction int, rng Rand) (models.GameOutcome, error) {
	if bet <= 0 {
		return models.GameOutcome{}, fmt.Errorf("bet must be positive: %w", models.ErrInvalidArgument)
	}
	if prediction != CoinHeads && prediction != CoinTails {
		return models.GameOutcome{}, fmt.Errorf("prediction must be heads (0) or tails (1): %w", models.ErrInvalidArgument)
	}

	drawn := rng.Intn(2)
	desc := coinFaceName(drawn)

	var winnings int64
	if drawn == prediction {
		winnings = 2 * bet
	}

	return models.GameOutcome{Description: desc, Winnings: winnings}, nil
}

// ResolveDice rolls a uniform value in 1..6; an exact match on the
// prediction pays DiceMultiplier times the bet, anything else pays 0
func ResolveDice(bet int64, prediction int, rng Rand) (models.GameOutcome, error) {
	if bet <= 0 {
		return models.GameOutcome{}, fmt.Errorf("bet must be positive: %w", models.ErrInvalidArgument)
	}
	if prediction < 1 || prediction > 6 {
		return models.GameOutcome{}, fmt.Errorf("prediction must be 1-6: %w", models.ErrInvalidArgument)
	}

	roll := rng.Intn(6) + 1
	desc := fmt.Sprintf("rolled %d", roll)

	var winnings int64
	if roll == prediction {
		winnings = bet * DiceMultiplier
	}

	return models.GameOutcome{Description: desc, Winnings: winnings}, nil
}

func coinFaceName(face int) string {
	if face == CoinHeads {
		return "heads"
	}
	return "tails"
}
