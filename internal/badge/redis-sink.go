package badge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/burakmert236/courtside/common/errors"
)

// UpdatesChannel carries "{userId}:{count}" for the push gateway.
const UpdatesChannel = "badge:updates"

type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

// Key Generation Helpers

func badgeKey(userId string) string {
	return fmt.Sprintf("badge:%s", userId)
}

func authKey(userId string) string {
	return fmt.Sprintf("badge:auth:%s", userId)
}

// Authorized reports false for users that never granted badge permission.
func (s *RedisSink) Authorized(ctx context.Context, userId string) (bool, error) {
	value, err := s.client.Get(ctx, authKey(userId)).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to read badge authorization")
	}
	return value == "1", nil
}

func (s *RedisSink) Authorize(ctx context.Context, userId string, authorized bool) error {
	var err error
	if authorized {
		err = s.client.Set(ctx, authKey(userId), "1", 0).Err()
	} else {
		err = s.client.Del(ctx, authKey(userId)).Err()
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to store badge authorization")
	}
	return nil
}

func (s *RedisSink) SetBadge(ctx context.Context, userId string, count int) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, badgeKey(userId), count, 0)
	pipe.Publish(ctx, UpdatesChannel, userId+":"+strconv.Itoa(count))

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to set badge")
	}
	return nil
}

// Badge returns the last applied count, 0 when none was set.
func (s *RedisSink) Badge(ctx context.Context, userId string) (int, error) {
	count, err := s.client.Get(ctx, badgeKey(userId)).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to read badge")
	}
	return count, nil
}
