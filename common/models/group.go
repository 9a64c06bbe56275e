package models

import (
	"fmt"
	"strings"
	"time"
)

// MinGroupMembers is the smallest member count a group may have.
const MinGroupMembers = 2

type Group struct {
	GroupId   string    `dynamodbav:"group_id"`
	Name      string    `dynamodbav:"name"`
	MemberIds []string  `dynamodbav:"member_ids,stringset"`
	CreatedAt time.Time `dynamodbav:"created_at"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Membership doubles as the per-(group,user) read watermark.
// A zero LastReadAt means the member never read the group.
type Membership struct {
	GroupId    string    `dynamodbav:"group_id"`
	UserId     string    `dynamodbav:"user_id"`
	JoinedAt   time.Time `dynamodbav:"joined_at"`
	LastReadAt time.Time `dynamodbav:"last_read_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`

	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
}

// Key handlers

func GroupPK(groupID string) string {
	return fmt.Sprintf("GROUP#%s", groupID)
}

func GroupSKPrefix() string {
	return "GROUP#"
}

func MemberSK(userID string) string {
	return fmt.Sprintf("MEMBER#%s", userID)
}

func MemberSKPrefix() string {
	return "MEMBER#"
}

func ExtractGroupID(key string) (string, error) {
	if !strings.HasPrefix(key, GroupSKPrefix()) || len(key) == len(GroupSKPrefix()) {
		return "", fmt.Errorf("invalid group key format: %s", key)
	}
	return strings.TrimPrefix(key, GroupSKPrefix()), nil
}
