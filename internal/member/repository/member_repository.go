package repository

import (
	"context"
	"errors"
	"fmt"

	"marketplace_chat_service/internal/member/domain"
	errprocess "marketplace_chat_service/pkg/err"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// MemberRepository definition get Member info
type MemberRepository interface {
	FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error)
	UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus) error
}

type memberRepository struct {
	db *pgxpool.Pool
}

// NewMemberRepository create a MemberRepository
func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &memberRepository{db: db}
}

// UpdateMemberStatus banned / deleted members keep their status
func (r *memberRepository) UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus) error {
	_, err := r.db.Exec(ctx,
		"UPDATE member SET status = $1 WHERE member_id = $2 AND status IN ($3, $4)",
		status, memberID, domain.MemberStatusOffLine, domain.MemberStatusOnLine,
	)
	return err
}

func (r *memberRepository) FindByMember(ctx context.Context, memberQuery *domain.MemberQuery) (*domain.Member, error) {
	queryStr := "SELECT id, member_id, email, status FROM member WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if memberQuery.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *memberQuery.Email)
		paramCount++
	}
	if memberQuery.MemberID != nil {
		queryStr += fmt.Sprintf(" AND member_id = $%d", paramCount)
		params = append(params, *memberQuery.MemberID)
		paramCount++
	}
	if memberQuery.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *memberQuery.ID)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: empty member query", errprocess.ErrValidation)
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var member domain.Member
	err := row.Scan(&member.ID, &member.MemberID, &member.Email, &member.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no member found with given criteria: %w", errprocess.ErrNotFound)
		}
		return nil, err
	}

	return &member, nil
}
