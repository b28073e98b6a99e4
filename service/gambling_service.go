package service

import (
	"context"
	"fmt"
	"time"

	"coffers/events"
	"coffers/models"
)

// gamblingService implements the GamblingService interface
type gamblingService struct {
	uowFactory UnitOfWorkFactory
	rng        Rand
	now        func() time.Time
}

// NewGamblingService creates a new gambling service
func NewGamblingService(uowFactory UnitOfWorkFactory, rng Rand) GamblingService {
	return &gamblingService{
		uowFactory: uowFactory,
		rng:        rng,
		now:        time.Now,
	}
}

// PlayGame resolves one game and settles it against the ledger. The bet is
// affordability-checked before any randomness is consumed, and the net
// result (winnings minus bet) is applied as a single atomic adjustment:
// the balance is never observably decremented without its matching credit.
func (s *gamblingService) PlayGame(ctx context.Context, userID, serverID string, gameType models.GameType, bet int64, prediction int) (*models.GameResult, error) {
	if !gameType.Valid() {
		return nil, fmt.Errorf("unknown game type %q: %w", gameType, models.ErrInvalidArgument)
	}
	if bet <= 0 {
		return nil, fmt.Errorf("bet must be positive: %w", models.ErrInvalidArgument)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	state, err := serverStateOf(ctx, uow, userID, serverID)
	if err != nil {
		return nil, err
	}

	// A losing bet must still have been affordable; never resolve-then-reject
	if state.Balance < bet {
		return nil, fmt.Errorf("have %d, need %d: %w", state.Balance, bet, models.ErrInsufficientFunds)
	}

	var outcome models.GameOutcome
	switch gameType {
	case models.GameTypeSlots:
		outcome, err = ResolveSlots(bet, s.rng)
	case models.GameTypeCoinflip:
		outcome, err = ResolveCoinflip(bet, prediction, s.rng)
	case models.GameTypeDice:
		outcome, err = ResolveDice(bet, prediction, s.rng)
	}
	if err != nil {
		return nil, err
	}

	return s.settleGame(ctx, uow, userID, serverID, gameType, bet, outcome, state.Balance)
}

// RecordGame settles an externally resolved game: one atomic balance
// adjustment plus stats update and game record
func (s *gamblingService) RecordGame(ctx context.Context, userID, serverID string, gameType models.GameType, bet, winnings int64, outcome string) (*models.GameResult, error) {
	if !gameType.Valid() {
		return nil, fmt.Errorf("unknown game type %q: %w", gameType, models.ErrInvalidArgument)
	}
	if bet <= 0 {
		return nil, fmt.Errorf("bet must be positive: %w", models.ErrInvalidArgument)
	}
	if winnings < 0 {
		return nil, fmt.Errorf("winnings must be non-negative: %w", models.ErrInvalidArgument)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	state, err := serverStateOf(ctx, uow, userID, serverID)
	if err != nil {
		return nil, err
	}
	if state.Balance < bet {
		return nil, fmt.Errorf("have %d, need %d: %w", state.Balance, bet, models.ErrInsufficientFunds)
	}

	return s.settleGame(ctx, uow, userID, serverID, gameType, bet, models.GameOutcome{Description: outcome, Winnings: winnings}, state.Balance)
}

// GetRecentGames returns a user's recent games on a server
func (s *gamblingService) GetRecentGames(ctx context.Context, userID, serverID string, limit int) ([]*models.GameRecord, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	games, err := uow.GameRepository().GetByUser(ctx, userID, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}

	return games, nil
}

// settleGame applies the net delta as one ledger movement, updates the
// gambling counters, journals the change and records the game, all inside
// the caller's transaction
func (s *gamblingService) settleGame(ctx context.Context, uow UnitOfWork, userID, serverID string, gameType models.GameType, bet int64, outcome models.GameOutcome, balanceBefore int64) (*models.GameResult, error) {
	delta := outcome.Winnings - bet

	var txType models.TransactionType
	switch {
	case delta > 0:
		txType = models.TransactionTypeGameWin
		if err := uow.UserRepository().AddBalance(ctx, userID, serverID, delta); err != nil {
			return nil, fmt.Errorf("failed to add winnings: %w", err)
		}
	case delta < 0:
		txType = models.TransactionTypeGameLoss
		if err := uow.UserRepository().DeductBalance(ctx, userID, serverID, -delta); err != nil {
			return nil, fmt.Errorf("failed to deduct bet: %w", err)
		}
	default:
		txType = models.TransactionTypeGamePush
	}

	newBalance := balanceBefore + delta
	playedAt := s.now()

	if err := uow.UserRepository().RecordGamblingOutcome(ctx, userID, serverID, bet, outcome.Winnings, playedAt); err != nil {
		return nil, fmt.Errorf("failed to update gambling stats: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		ServerID:        serverID,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    newBalance,
		ChangeAmount:    delta,
		TransactionType: txType,
		TransactionMetadata: map[string]any{
			"game_type": string(gameType),
			"bet":       bet,
			"winnings":  outcome.Winnings,
			"outcome":   outcome.Description,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	game := &models.GameRecord{
		UserID:   userID,
		ServerID: serverID,
		GameType: gameType,
		Bet:      bet,
		Winnings: outcome.Winnings,
		Outcome:  outcome.Description,
	}
	if err := uow.GameRepository().Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game record: %w", err)
	}

	uow.EventBus().Publish(events.GamePlayedEvent{
		UserID:   userID,
		ServerID: serverID,
		GameType: gameType,
		Bet:      bet,
		Winnings: outcome.Winnings,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.GameResult{
		GameType:   gameType,
		Outcome:    outcome.Description,
		Bet:        bet,
		Winnings:   outcome.Winnings,
		NewBalance: newBalance,
	}, nil
}
