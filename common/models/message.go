package models

import (
	"fmt"
	"time"
)

// Fixed width keeps lexical order of sort keys equal to time order.
const SortableTimeLayout = "2006-01-02T15:04:05.000000000Z"

// EpochZero is the watermark of a reader that never read a stream.
var EpochZero = time.Unix(0, 0).UTC()

type Message struct {
	MessageId string    `dynamodbav:"message_id"`
	GroupId   string    `dynamodbav:"group_id"`
	SenderId  string    `dynamodbav:"sender_id"`
	Text      string    `dynamodbav:"text"`
	CreatedAt time.Time `dynamodbav:"created_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

type Announcement struct {
	AnnouncementId string    `dynamodbav:"announcement_id"`
	SenderUsername string    `dynamodbav:"sender_username"`
	Content        string    `dynamodbav:"content"`
	CreatedAt      time.Time `dynamodbav:"created_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

func SortableTime(t time.Time) string {
	return t.UTC().Format(SortableTimeLayout)
}

// Key handlers

func MessageSK(createdAt time.Time, messageID string) string {
	return fmt.Sprintf("MSG#%s#%s", SortableTime(createdAt), messageID)
}

// MessageSKAfter is an exclusive lower bound: it sorts after every message
// created at exactly t and before every message created later.
func MessageSKAfter(t time.Time) string {
	return fmt.Sprintf("MSG#%s#~", SortableTime(t))
}

func MessageSKUpperBound() string {
	return "MSG#~"
}

func AnnouncementsPK() string {
	return "ANNOUNCEMENTS"
}

func AnnouncementSK(createdAt time.Time, announcementID string) string {
	return fmt.Sprintf("ANN#%s#%s", SortableTime(createdAt), announcementID)
}

func AnnouncementSKAfter(t time.Time) string {
	return fmt.Sprintf("ANN#%s#~", SortableTime(t))
}

func AnnouncementSKUpperBound() string {
	return "ANN#~"
}
