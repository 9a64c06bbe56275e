package models

import (
	"fmt"
	"time"
)

type BracketRound struct {
	TournamentId string   `dynamodbav:"tournament_id"`
	CategoryId   string   `dynamodbav:"category_id"`
	RoundIndex   int      `dynamodbav:"round_index"`
	RoundKey     string   `dynamodbav:"round_key"`
	PlayerNames  []string `dynamodbav:"player_names"`
	Scores       []string `dynamodbav:"scores"`
	// Completed is set when the round was saved by advancing past it, or is
	// the final of a draw with a declared champion.
	Completed bool      `dynamodbav:"completed"`
	Version   int       `dynamodbav:"version"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

type BracketChampion struct {
	TournamentId  string    `dynamodbav:"tournament_id"`
	CategoryId    string    `dynamodbav:"category_id"`
	ChampionName  string    `dynamodbav:"champion_name"`
	ChampionScore string    `dynamodbav:"champion_score"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers

func DrawPK(tournamentID, categoryID string) string {
	return fmt.Sprintf("TOURNAMENT#%s#DRAW#%s", tournamentID, categoryID)
}

func RoundKey(roundIndex int) string {
	return fmt.Sprintf("round_%d", roundIndex)
}

func RoundSK(roundIndex int) string {
	return fmt.Sprintf("ROUND#%02d", roundIndex)
}

func RoundSKPrefix() string {
	return "ROUND#"
}

func ChampionSK() string {
	return "CHAMPION"
}
