package events

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Payloads travel as protobuf Struct messages so every service can decode
// them without sharing generated code.

type MessagePostedEvent struct {
	GroupId   string
	MessageId string
	SenderId  string
	CreatedAt time.Time
}

type MembershipChangedEvent struct {
	GroupId string
	UserId  string
	Joined  bool
}

type AnnouncementPostedEvent struct {
	AnnouncementId string
	CreatedAt      time.Time
}

type WatermarkAdvancedEvent struct {
	UserId string
	// Empty for the announcement feed.
	GroupId string
	ReadAt  time.Time
}

func (e MessagePostedEvent) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"group_id":   e.GroupId,
		"message_id": e.MessageId,
		"sender_id":  e.SenderId,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (e MembershipChangedEvent) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"group_id": e.GroupId,
		"user_id":  e.UserId,
		"joined":   e.Joined,
	})
}

func (e AnnouncementPostedEvent) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"announcement_id": e.AnnouncementId,
		"created_at":      e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (e WatermarkAdvancedEvent) Proto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"user_id":  e.UserId,
		"group_id": e.GroupId,
		"read_at":  e.ReadAt.UTC().Format(time.RFC3339Nano),
	})
}

func DecodeMessagePosted(s *structpb.Struct) (MessagePostedEvent, error) {
	createdAt, err := timeField(s, "created_at")
	if err != nil {
		return MessagePostedEvent{}, err
	}
	e := MessagePostedEvent{
		GroupId:   stringField(s, "group_id"),
		MessageId: stringField(s, "message_id"),
		SenderId:  stringField(s, "sender_id"),
		CreatedAt: createdAt,
	}
	if e.GroupId == "" {
		return e, fmt.Errorf("message posted event without group_id")
	}
	return e, nil
}

func DecodeMembershipChanged(s *structpb.Struct) (MembershipChangedEvent, error) {
	e := MembershipChangedEvent{
		GroupId: stringField(s, "group_id"),
		UserId:  stringField(s, "user_id"),
		Joined:  s.GetFields()["joined"].GetBoolValue(),
	}
	if e.GroupId == "" || e.UserId == "" {
		return e, fmt.Errorf("membership changed event without group_id or user_id")
	}
	return e, nil
}

func DecodeAnnouncementPosted(s *structpb.Struct) (AnnouncementPostedEvent, error) {
	createdAt, err := timeField(s, "created_at")
	if err != nil {
		return AnnouncementPostedEvent{}, err
	}
	return AnnouncementPostedEvent{
		AnnouncementId: stringField(s, "announcement_id"),
		CreatedAt:      createdAt,
	}, nil
}

func DecodeWatermarkAdvanced(s *structpb.Struct) (WatermarkAdvancedEvent, error) {
	readAt, err := timeField(s, "read_at")
	if err != nil {
		return WatermarkAdvancedEvent{}, err
	}
	e := WatermarkAdvancedEvent{
		UserId:  stringField(s, "user_id"),
		GroupId: stringField(s, "group_id"),
		ReadAt:  readAt,
	}
	if e.UserId == "" {
		return e, fmt.Errorf("watermark advanced event without user_id")
	}
	return e, nil
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func timeField(s *structpb.Struct, key string) (time.Time, error) {
	raw := stringField(s, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}
