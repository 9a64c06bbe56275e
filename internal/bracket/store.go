package bracket

import (
	"context"

	"github.com/burakmert236/courtside/common/models"
)

// Store persists rounds of one draw. The DynamoDB bracket repository
// satisfies it.
type Store interface {
	ListRounds(ctx context.Context, tournamentId string, categoryId string) ([]models.BracketRound, error)
	GetChampion(ctx context.Context, tournamentId string, categoryId string) (*models.BracketChampion, error)
	SaveRound(ctx context.Context, round *models.BracketRound) error
	AdvanceRound(ctx context.Context, round *models.BracketRound, lastRoundIndex int) error
	DeclareChampion(ctx context.Context, final *models.BracketRound, champion *models.BracketChampion) error
	SaveChampion(ctx context.Context, champion *models.BracketChampion) error
}
