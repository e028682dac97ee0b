package app

import (
	"context"
	"errors"
	"fmt"

	chatdomain "marketplace_chat_service/internal/chat/domain"
	"marketplace_chat_service/internal/member/domain"
	"marketplace_chat_service/internal/member/repository"
	errprocess "marketplace_chat_service/pkg/err"
	"marketplace_chat_service/pkg/logger"
	"marketplace_chat_service/pkg/token"

	"go.uber.org/zap"
)

// AuthGate resolve a handshake token to a member id
type AuthGate struct {
	secret  []byte
	issuer  string
	members repository.MemberRepository
	session repository.SessionRepository
}

// NewAuthGate members / session may be nil to skip that check
func NewAuthGate(
	secret []byte,
	issuer string,
	members repository.MemberRepository,
	session repository.SessionRepository,
) *AuthGate {
	return &AuthGate{
		secret:  secret,
		issuer:  issuer,
		members: members,
		session: session,
	}
}

// Resolve every failure is ErrUnauthorized, the cause is only logged
func (a *AuthGate) Resolve(ctx context.Context, rawToken string) (string, error) {
	claims, err := token.ParseJWT(a.secret, rawToken)
	if err != nil {
		return "", a.reject("parse token", err)
	}
	if a.issuer != "" && claims.Issuer != "" && claims.Issuer != a.issuer {
		return "", a.reject("issuer", fmt.Errorf("unexpected issuer %q", claims.Issuer))
	}
	memberID := claims.MemberID.String()

	if a.members != nil {
		member, err := a.members.FindByMember(ctx, &domain.MemberQuery{MemberID: &memberID})
		if err != nil {
			return "", a.reject("member lookup", err)
		}
		if !member.CanChat() {
			return "", a.reject("member status", fmt.Errorf("member %s status %d", memberID, member.Status))
		}
	}

	if a.session != nil {
		session, err := a.session.FindSession(ctx, memberID)
		if err != nil {
			return "", a.reject("session lookup", err)
		}
		if session.Token != rawToken || session.IsExpired() {
			return "", a.reject("session", errors.New("token is not the live session"))
		}
	}

	return memberID, nil
}

func (a *AuthGate) reject(step string, cause error) error {
	logger.Log.Debug("auth rejected", zap.String("step", step), zap.Error(cause))
	return fmt.Errorf("%w: %s", errprocess.ErrUnauthorized, step)
}

// PresenceRecorder write chat presence into member.status
type PresenceRecorder struct {
	members repository.MemberRepository
}

// NewPresenceRecorder create PresenceRecorder
func NewPresenceRecorder(members repository.MemberRepository) *PresenceRecorder {
	return &PresenceRecorder{members: members}
}

// RecordStatus online -> MemberStatusOnLine, offline -> MemberStatusOffLine
func (p *PresenceRecorder) RecordStatus(ctx context.Context, memberID string, status chatdomain.PresenceStatus) error {
	memberStatus := domain.MemberStatusOffLine
	if status == chatdomain.StatusOnline {
		memberStatus = domain.MemberStatusOnLine
	}
	return p.members.UpdateMemberStatus(ctx, memberID, memberStatus)
}
