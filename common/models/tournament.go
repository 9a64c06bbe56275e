package models

import (
	"fmt"
	"strings"
	"time"
)

type Tournament struct {
	TournamentId    string    `dynamodbav:"tournament_id"`
	Name            string    `dynamodbav:"name"`
	NumberOfPlayers int       `dynamodbav:"number_of_players"`
	Categories      []string  `dynamodbav:"categories"`
	AdminIds        []string  `dynamodbav:"admin_ids"`
	StartDate       time.Time `dynamodbav:"start_date"`
	EndDate         time.Time `dynamodbav:"end_date"`
	CreatedAt       time.Time `dynamodbav:"created_at"`
	UpdatedAt       time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

func (t *Tournament) HasCategory(categoryId string) bool {
	for _, c := range t.Categories {
		if c == categoryId {
			return true
		}
	}
	return false
}

func (t *Tournament) IsAdmin(userId string) bool {
	for _, id := range t.AdminIds {
		if id == userId {
			return true
		}
	}
	return false
}

// Key handlers

func TournamentPK(tournamentID string) string {
	return fmt.Sprintf("TOURNAMENT#%s", tournamentID)
}

func MetaSK() string {
	return "META"
}

func ExtractTournamentID(pk string) (string, error) {
	rest, ok := strings.CutPrefix(pk, "TOURNAMENT#")
	if !ok || rest == "" {
		return "", fmt.Errorf("invalid tournament PK format: %s", pk)
	}
	if i := strings.Index(rest, "#"); i >= 0 {
		rest = rest[:i]
	}
	return rest, nil
}
