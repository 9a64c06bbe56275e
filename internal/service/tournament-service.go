package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/common/models"
	"github.com/burakmert236/courtside/internal/bracket"
	"github.com/burakmert236/courtside/internal/repository"
)

type CreateTournamentInput struct {
	Name            string
	NumberOfPlayers int
	Categories      []string
	AdminIds        []string
	StartDate       time.Time
	EndDate         time.Time
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, tournamentId string) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo repository.TournamentRepository
	logger         *logger.Logger
}

func NewTournamentService(tournamentRepo repository.TournamentRepository, logger *logger.Logger) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		logger:         logger.With("component", "tournament-service"),
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournament(input); err != nil {
		return nil, err
	}

	tournament := &models.Tournament{
		TournamentId:    uuid.New().String(),
		Name:            strings.TrimSpace(input.Name),
		NumberOfPlayers: input.NumberOfPlayers,
		Categories:      input.Categories,
		AdminIds:        input.AdminIds,
		StartDate:       input.StartDate.UTC(),
		EndDate:         input.EndDate.UTC(),
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		s.logger.Error("failed to create tournament", "error", err)
		return nil, err
	}

	s.logger.Info("tournament created",
		"tournament_id", tournament.TournamentId,
		"players", tournament.NumberOfPlayers,
		"categories", len(tournament.Categories),
	)
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	if tournamentId == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "tournament id is required")
	}
	return s.tournamentRepo.GetById(ctx, tournamentId)
}

func validateTournament(input CreateTournamentInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "tournament name is required")
	}
	if !bracket.ValidPlayerCount(input.NumberOfPlayers) {
		return apperrors.New(apperrors.CodeInvalidInput, "number of players must be a power of two and at least 2")
	}
	if len(input.Categories) == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "at least one category is required")
	}
	seen := make(map[string]struct{}, len(input.Categories))
	for _, c := range input.Categories {
		if strings.TrimSpace(c) == "" {
			return apperrors.New(apperrors.CodeInvalidInput, "category names cannot be empty")
		}
		if _, dup := seen[c]; dup {
			return apperrors.New(apperrors.CodeInvalidInput, "duplicate category "+c)
		}
		seen[c] = struct{}{}
	}
	if len(input.AdminIds) == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "at least one admin is required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return apperrors.New(apperrors.CodeInvalidInput, "start and end dates are required")
	}
	if input.EndDate.Before(input.StartDate) {
		return apperrors.New(apperrors.CodeInvalidInput, "end date is before start date")
	}
	return nil
}
