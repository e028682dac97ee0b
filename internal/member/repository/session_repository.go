package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace_chat_service/internal/member/domain"
	"marketplace_chat_service/pkg/database"
	errprocess "marketplace_chat_service/pkg/err"
)

// SessionRepository read the login session member_service keeps in redis
type SessionRepository interface {
	FindSession(ctx context.Context, memberID string) (*domain.MemberSession, error)
}

type sessionRepository struct {
	redis database.RedisRepository[domain.MemberSession]
}

// NewSessionRepository create a SessionRepository
func NewSessionRepository(redis database.RedisRepository[domain.MemberSession]) SessionRepository {
	return &sessionRepository{redis: redis}
}

func (r *sessionRepository) FindSession(ctx context.Context, memberID string) (*domain.MemberSession, error) {
	session, err := r.redis.Get(ctx, memberID)
	if errors.Is(err, database.ErrRedisNil) {
		return nil, fmt.Errorf("session of %s: %w", memberID, errprocess.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
