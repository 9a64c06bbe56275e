package models

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	UserId                  string    `dynamodbav:"user_id"`
	DisplayName             string    `dynamodbav:"display_name"`
	LastReadAnnouncementsAt time.Time `dynamodbav:"last_read_announcements_at"`
	CreatedAt               time.Time `dynamodbav:"created_at"`
	UpdatedAt               time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers

func UserPK(userId string) string {
	return fmt.Sprintf("USER#%s", userId)
}

func ProfileSK() string {
	return "PROFILE"
}

func ExtractUserID(pk string) (string, error) {
	if !strings.HasPrefix(pk, "USER#") || len(pk) < 6 {
		return "", fmt.Errorf("invalid user PK format: %s", pk)
	}
	return pk[5:], nil
}
