package service

import (
	"context"
	"sync"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/internal/bracket"
	"github.com/burakmert236/courtside/internal/repository"
)

type BracketService interface {
	GetBracket(ctx context.Context, tournamentId string, categoryId string) (bracket.Snapshot, error)
	Advance(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error)
	DeclareChampion(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error)
	GoBack(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error)
	EditSlot(ctx context.Context, actor string, tournamentId string, categoryId string, roundIndex int, slotIndex int, name string) (bracket.Snapshot, error)
	EditScore(ctx context.Context, actor string, tournamentId string, categoryId string, roundIndex int, slotIndex int, score string) (bracket.Snapshot, error)
	EditChampion(ctx context.Context, actor string, tournamentId string, categoryId string, name string, score string) (bracket.Snapshot, error)
	SaveRound(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error)
}

type drawKey struct {
	tournamentId string
	categoryId   string
}

type engineEntry struct {
	ready  chan struct{}
	engine *bracket.Engine
	err    error
}

// bracketService keeps one engine per draw, loaded on first use.
type bracketService struct {
	tournamentRepo repository.TournamentRepository
	store          bracket.Store
	logger         *logger.Logger

	mu      sync.Mutex
	engines map[drawKey]*engineEntry
}

func NewBracketService(
	tournamentRepo repository.TournamentRepository,
	store bracket.Store,
	logger *logger.Logger,
) BracketService {
	return &bracketService{
		tournamentRepo: tournamentRepo,
		store:          store,
		logger:         logger.With("component", "bracket-service"),
		engines:        make(map[drawKey]*engineEntry),
	}
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentId string, categoryId string) (bracket.Snapshot, error) {
	engine, err := s.engine(ctx, tournamentId, categoryId)
	if err != nil {
		return bracket.Snapshot{}, err
	}
	return engine.Snapshot(), nil
}

func (s *bracketService) Advance(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error) {
	return s.mutate(ctx, actor, tournamentId, categoryId, func(e *bracket.Engine) error {
		return e.Advance(ctx)
	})
}

func (s *bracketService) DeclareChampion(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error) {
	return s.mutate(ctx, actor, tournamentId, categoryId, func(e *bracket.Engine) error {
		return e.DeclareChampion(ctx)
	})
}

func (s *bracketService) GoBack(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error) {
	return s.mutate(ctx, actor, tournamentId, categoryId, func(e *bracket.Engine) error {
		return e.GoBack()
	})
}

func (s *bracketService) EditSlot(ctx context.Context, actor string, tournamentId string, categoryId string, roundIndex int, slotIndex int, name string) (bracket.Snapshot, error) {
	return s.mutate(ctx, actor, tournamentId, categoryId, func(e *bracket.Engine) error {
		return e.EditSlot(actor, roundIndex, slotIndex, name)
	})
}

func (s *bracketService) EditScore(ctx context.Context, actor string, tournamentId string, categoryId string, roundIndex int, slotIndex int, score string) (bracket.Snapshot, error) {
	return s.mutate(ctx, actor, tournamentId, categoryId, func(e *bracket.Engine) error {
		return e.EditScore(actor, roundIndex, slotIndex, score)
	})
}

func (s *bracketService) EditChampion(ctx context.Context, actor string, tournamentId string, categoryId string, name string, score string) (bracket.Snapshot, error) {
	return s.mutate(ctx, actor, tournamentId, categoryId, func(e *bracket.Engine) error {
		return e.EditChampion(actor, name, score)
	})
}

func (s *bracketService) SaveRound(ctx context.Context, actor string, tournamentId string, categoryId string) (bracket.Snapshot, error) {
	return s.mutate(ctx, actor, tournamentId, categoryId, func(e *bracket.Engine) error {
		return e.SaveCurrent(ctx)
	})
}

func (s *bracketService) mutate(
	ctx context.Context,
	actor string,
	tournamentId string,
	categoryId string,
	op func(*bracket.Engine) error,
) (bracket.Snapshot, error) {
	if actor == "" {
		return bracket.Snapshot{}, apperrors.New(apperrors.CodeUnauthorized, "missing user identity")
	}

	tournament, err := s.tournamentRepo.GetById(ctx, tournamentId)
	if err != nil {
		return bracket.Snapshot{}, err
	}
	if !tournament.IsAdmin(actor) {
		return bracket.Snapshot{}, apperrors.New(apperrors.CodeForbidden, "only tournament admins can change the bracket")
	}

	engine, err := s.engine(ctx, tournamentId, categoryId)
	if err != nil {
		return bracket.Snapshot{}, err
	}

	if err := op(engine); err != nil {
		s.logger.Warn("bracket operation rejected",
			"tournament_id", tournamentId,
			"category_id", categoryId,
			"actor", actor,
			"error", err,
		)
		return engine.Snapshot(), err
	}

	return engine.Snapshot(), nil
}

// engine returns the loaded engine of a draw. Concurrent callers share one
// load; a failed load is forgotten so the next call retries.
func (s *bracketService) engine(ctx context.Context, tournamentId string, categoryId string) (*bracket.Engine, error) {
	key := drawKey{tournamentId: tournamentId, categoryId: categoryId}

	s.mu.Lock()
	entry, ok := s.engines[key]
	if !ok {
		entry = &engineEntry{ready: make(chan struct{})}
		s.engines[key] = entry
	}
	s.mu.Unlock()

	if ok {
		select {
		case <-entry.ready:
			return entry.engine, entry.err
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), apperrors.CodeTimeout, "bracket still loading")
		}
	}

	entry.engine, entry.err = s.load(ctx, tournamentId, categoryId)
	close(entry.ready)

	if entry.err != nil {
		s.mu.Lock()
		delete(s.engines, key)
		s.mu.Unlock()
	}
	return entry.engine, entry.err
}

func (s *bracketService) load(ctx context.Context, tournamentId string, categoryId string) (*bracket.Engine, error) {
	tournament, err := s.tournamentRepo.GetById(ctx, tournamentId)
	if err != nil {
		return nil, err
	}
	if !tournament.HasCategory(categoryId) {
		return nil, apperrors.New(apperrors.CodeNotFound, "category not found in tournament")
	}

	engine, err := bracket.NewEngine(bracket.Config{
		TournamentId: tournamentId,
		CategoryId:   categoryId,
		PlayerCount:  tournament.NumberOfPlayers,
		AdminIds:     tournament.AdminIds,
	}, s.store, s.logger)
	if err != nil {
		return nil, err
	}

	if err := engine.Load(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}
