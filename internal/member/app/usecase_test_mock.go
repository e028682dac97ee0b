package app

import (
	"context"

	"marketplace_chat_service/internal/member/domain"

	"github.com/stretchr/testify/mock"
)

// MockMemberRepository 模擬 MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

// FindByMember mock
func (m *MockMemberRepository) FindByMember(ctx context.Context, q *domain.MemberQuery) (*domain.Member, error) {
	args := m.Called(ctx, q)
	if member, ok := args.Get(0).(*domain.Member); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateMemberStatus mock
func (m *MockMemberRepository) UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus) error {
	return m.Called(ctx, memberID, status).Error(0)
}

// MockSessionRepository 模擬 SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

// FindSession mock
func (m *MockSessionRepository) FindSession(ctx context.Context, memberID string) (*domain.MemberSession, error) {
	args := m.Called(ctx, memberID)
	if s, ok := args.Get(0).(*domain.MemberSession); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
