package app

import (
	"context"
	"testing"
	"time"

	chatdomain "marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/member/domain"
	errprocess "marketplace_chat_service/pkg/err"
	"marketplace_chat_service/pkg/logger"
	"marketplace_chat_service/pkg/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("secret")

func init() {
	logger.SetNewNop()
}

func issue(t *testing.T, memberID string, ttl time.Duration) string {
	t.Helper()
	tok, err := token.GenerateJWT(testSecret, memberID, token.RoleMember, "member_service", ttl)
	require.NoError(t, err)
	return tok
}

func memberQueryFor(id string) interface{} {
	return mock.MatchedBy(func(q *domain.MemberQuery) bool {
		return q.MemberID != nil && *q.MemberID == id
	})
}

func TestAuthGate_TokenOnly(t *testing.T) {
	gate := NewAuthGate(testSecret, "member_service", nil, nil)

	id, err := gate.Resolve(context.Background(), issue(t, "12", time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "12", id)

	for name, raw := range map[string]string{
		"empty":   "",
		"garbage": "abc.def.ghi",
		"expired": issue(t, "12", -time.Minute),
	} {
		_, err := gate.Resolve(context.Background(), raw)
		assert.ErrorIs(t, err, errprocess.ErrUnauthorized, name)
	}
}

func TestAuthGate_WrongIssuer(t *testing.T) {
	tok, err := token.GenerateJWT(testSecret, "12", token.RoleMember, "someone_else", time.Minute)
	require.NoError(t, err)

	_, err = NewAuthGate(testSecret, "member_service", nil, nil).Resolve(context.Background(), tok)
	assert.ErrorIs(t, err, errprocess.ErrUnauthorized)
}

func TestAuthGate_MemberCheck(t *testing.T) {
	members := new(MockMemberRepository)
	members.On("FindByMember", mock.Anything, memberQueryFor("1")).
		Return(&domain.Member{MemberID: "1", Status: domain.MemberStatusOffLine}, nil)
	members.On("FindByMember", mock.Anything, memberQueryFor("2")).
		Return(&domain.Member{MemberID: "2", Status: domain.MemberStatusBan}, nil)
	members.On("FindByMember", mock.Anything, memberQueryFor("3")).
		Return(nil, errprocess.ErrNotFound)

	gate := NewAuthGate(testSecret, "", members, nil)

	id, err := gate.Resolve(context.Background(), issue(t, "1", time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	_, err = gate.Resolve(context.Background(), issue(t, "2", time.Minute))
	assert.ErrorIs(t, err, errprocess.ErrUnauthorized)

	_, err = gate.Resolve(context.Background(), issue(t, "3", time.Minute))
	assert.ErrorIs(t, err, errprocess.ErrUnauthorized)

	members.AssertExpectations(t)
}

func TestAuthGate_SessionCheck(t *testing.T) {
	live := issue(t, "1", time.Minute)
	stale := issue(t, "1", 2*time.Minute)
	expired := issue(t, "2", time.Minute)

	sessions := new(MockSessionRepository)
	sessions.On("FindSession", mock.Anything, "1").Return(&domain.MemberSession{
		Token:     live,
		MemberID:  "1",
		ExpiredAt: time.Now().Add(time.Hour),
	}, nil)
	sessions.On("FindSession", mock.Anything, "2").Return(&domain.MemberSession{
		Token:     expired,
		MemberID:  "2",
		ExpiredAt: time.Now().Add(-time.Second),
	}, nil)
	sessions.On("FindSession", mock.Anything, "3").Return(nil, errprocess.ErrNotFound)

	gate := NewAuthGate(testSecret, "", nil, sessions)

	id, err := gate.Resolve(context.Background(), live)
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	_, err = gate.Resolve(context.Background(), stale)
	assert.ErrorIs(t, err, errprocess.ErrUnauthorized, "logged in again elsewhere")

	_, err = gate.Resolve(context.Background(), expired)
	assert.ErrorIs(t, err, errprocess.ErrUnauthorized, "session expired")

	_, err = gate.Resolve(context.Background(), issue(t, "3", time.Minute))
	assert.ErrorIs(t, err, errprocess.ErrUnauthorized)
}

func TestPresenceRecorder(t *testing.T) {
	members := new(MockMemberRepository)
	members.On("UpdateMemberStatus", mock.Anything, "1", domain.MemberStatusOnLine).Return(nil).Once()
	members.On("UpdateMemberStatus", mock.Anything, "1", domain.MemberStatusOffLine).Return(nil).Once()

	rec := NewPresenceRecorder(members)
	require.NoError(t, rec.RecordStatus(context.Background(), "1", chatdomain.StatusOnline))
	require.NoError(t, rec.RecordStatus(context.Background(), "1", chatdomain.StatusOffline))
	members.AssertExpectations(t)
}
